package fx

import (
	"embed"
	"fmt"
	"io"
	"text/template"

	"github.com/Masterminds/sprig"
	"github.com/tactus-audio/tactus"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var graphTemplate = template.Must(template.New("base").Funcs(sprig.TxtFuncMap()).ParseFS(templateFS, "templates/*.tmpl"))

type (
	graphChannel struct {
		Channel *tactus.Channel
		Recalls []*tactus.Recall
	}

	graphData struct {
		Audio        *tactus.Audio
		InputPads    int
		OutputPads   int
		Containers   []*tactus.RecallContainer
		AudioRecalls map[string][]*tactus.Recall
		Channels     map[string][]graphChannel
	}
)

// DumpGraph writes a human readable listing of the recall graph of a: its
// containers, then the play and recall lists of the audio and of every
// channel with their ports.
func DumpGraph(w io.Writer, a *tactus.Audio) error {
	data := graphData{
		Audio:        a,
		InputPads:    a.Pads(tactus.Input),
		OutputPads:   a.Pads(tactus.Output),
		Containers:   a.RecallContainers(),
		AudioRecalls: map[string][]*tactus.Recall{"play": a.Recalls(true), "recall": a.Recalls(false)},
		Channels:     map[string][]graphChannel{},
	}
	for _, dir := range []struct {
		name string
		play bool
	}{{"play", true}, {"recall", false}} {
		for _, t := range []tactus.ChannelType{tactus.Input, tactus.Output} {
			for _, ch := range a.Channels(t) {
				data.Channels[dir.name] = append(data.Channels[dir.name], graphChannel{ch, ch.Recalls(dir.play)})
			}
		}
	}
	if err := graphTemplate.ExecuteTemplate(w, "graph.tmpl", data); err != nil {
		return fmt.Errorf("dumping graph of %s: %w", a.Name, err)
	}
	return nil
}
