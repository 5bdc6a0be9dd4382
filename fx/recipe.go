package fx

import (
	_ "embed"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/tactus-audio/tactus"
	"gopkg.in/yaml.v3"
)

type (
	// PortSpec describes one port of a recipe level.
	PortSpec struct {
		Specifier   string   `yaml:"specifier"`
		Type        string   `yaml:"type"`
		Default     float64  `yaml:"default"`
		Min         float64  `yaml:"min"`
		Max         float64  `yaml:"max"`
		Toggled     bool     `yaml:"toggled"`
		Enumeration bool     `yaml:"enumeration"`
		ScalePoints []string `yaml:"scale-points"`
	}

	// PortTable lists the ports of each recall level of a recipe.
	PortTable struct {
		Audio   []PortSpec `yaml:"audio"`
		Channel []PortSpec `yaml:"channel"`
	}

	// Recipe is a named effect: the port tables and the behaviours of its
	// audio-level, channel-level and channel-run recalls. A recipe without an
	// audio-level behaviour creates no audio-level singleton.
	Recipe struct {
		Name  string
		Ports PortTable

		NewAudio      func() tactus.Behavior
		NewChannel    func() tactus.Behavior
		NewChannelRun func() tactus.Behavior
	}
)

const (
	Playback = "ags-fx-playback"
	Pattern  = "ags-fx-pattern"
	Notation = "ags-fx-notation"
	Buffer   = "ags-fx-buffer"
	Volume   = "ags-fx-volume"
	Envelope = "ags-fx-envelope"
	LFO      = "ags-fx-lfo"
	Peak     = "ags-fx-peak"
	Analyse  = "ags-fx-analyse"
)

var (
	ErrUnknownRecipe = errors.New("unknown recipe")
	ErrNoContainer   = errors.New("recall container missing")
)

//go:embed recipes.yml
var recipesYAML []byte

var recipes = mustLoadRecipes()

func mustLoadRecipes() map[string]*Recipe {
	var tables map[string]PortTable
	if err := yaml.Unmarshal(recipesYAML, &tables); err != nil {
		panic(fmt.Errorf("parsing embedded recipes.yml: %w", err))
	}
	behaviours := map[string]Recipe{
		Playback: {NewAudio: newPlaybackAudio, NewChannel: newConfig, NewChannelRun: newPlaybackChannelRun},
		Pattern:  {NewAudio: newPatternAudio, NewChannel: newConfig, NewChannelRun: newPatternChannelRun},
		Notation: {NewAudio: newNotationAudio, NewChannel: newConfig, NewChannelRun: newNotationChannelRun},
		Buffer:   {NewChannel: newConfig, NewChannelRun: newBufferChannelRun},
		Volume:   {NewChannel: newConfig, NewChannelRun: newVolumeChannelRun},
		Envelope: {NewChannel: newConfig, NewChannelRun: newEnvelopeChannelRun},
		LFO:      {NewChannel: newConfig, NewChannelRun: newLFOChannelRun},
		Peak:     {NewChannel: newConfig, NewChannelRun: newPeakChannelRun},
		Analyse:  {NewChannel: newConfig, NewChannelRun: newAnalyseChannelRun},
	}
	ret := make(map[string]*Recipe, len(behaviours))
	for name, b := range behaviours {
		t, ok := tables[name]
		if !ok {
			panic(fmt.Errorf("recipes.yml has no entry for %s", name))
		}
		r := b
		r.Name = name
		r.Ports = t
		ret[name] = &r
	}
	return ret
}

// Lookup returns the recipe with the given name.
func Lookup(name string) (*Recipe, error) {
	r, ok := recipes[name]
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, ErrUnknownRecipe)
	}
	return r, nil
}

// Recipes returns the names of all recipes, sorted.
func Recipes() []string {
	ret := make([]string, 0, len(recipes))
	for name := range recipes {
		ret = append(ret, name)
	}
	sort.Strings(ret)
	return ret
}

// Value returns the initial value of the port.
func (s PortSpec) Value() (tactus.PortValue, error) {
	t, err := tactus.ParsePortType(s.Type)
	if err != nil {
		return tactus.PortValue{}, fmt.Errorf("port %s: %w", s.Specifier, err)
	}
	if t == tactus.PortPointer {
		return tactus.PointerValue(nil), nil
	}
	if t == tactus.PortObject {
		return tactus.ObjectValue(nil), nil
	}
	return tactus.NumberValue(t, s.Default), nil
}

// newPorts creates the ports of one level and adds them to r.
func newPorts(recipe string, specs []PortSpec, r *tactus.Recall) error {
	for i, s := range specs {
		v, err := s.Value()
		if err != nil {
			return fmt.Errorf("%s: %w", recipe, err)
		}
		p := tactus.NewPort(recipe, s.Specifier, strconv.Itoa(i+1)+"/"+strconv.Itoa(len(specs)), v)
		p.PluginPort = &tactus.PluginPort{
			Min:         s.Min,
			Max:         s.Max,
			Default:     s.Default,
			Toggled:     s.Toggled,
			Enumeration: s.Enumeration,
			ScalePoints: append([]string(nil), s.ScalePoints...),
		}
		if err := r.AddPort(p); err != nil {
			return err
		}
	}
	return nil
}
