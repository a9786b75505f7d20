// Copyright 2026 The EDSST Authors
// SPDX-License-Identifier: Apache-2.0

// Package core tracks the commander's position and what has been
// scanned in the current system. Other modules read its state through
// the accessors; they run under the same hub lock, so no copying is
// needed.
package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/stellar-survey/edsst/lib/journal"
	"github.com/stellar-survey/edsst/lib/subscriber"
)

const (
	Name    = "core"
	Version = "0.1.0"
)

// Aliases route console commands to the core module.
var Aliases = []string{"main", "base", "edsst"}

// State is core's persisted state.
type State struct {
	EventStream bool       `cbor:"event_stream"`
	Current     StarSystem `cbor:"current_system"`
	Previous    StarSystem `cbor:"previous_system"`
}

// Module is the core subscriber.
type Module struct {
	*subscriber.Base

	state *State

	commanderName string
	gameVersion   string
	gameBuild     string
	horizons      bool
	odyssey       bool
}

// New returns the core module. Only the shared fields of options
// (store, output, renderer, logger) are used.
func New(options subscriber.Options) (*Module, error) {
	state := &State{
		Current:  StarSystem{Bodies: newBodies()},
		Previous: StarSystem{Bodies: newBodies()},
	}
	options.Name = Name
	options.Version = Version
	options.Aliases = Aliases
	options.DefaultEnabled = true
	options.State = state

	base, err := subscriber.NewBase(options)
	if err != nil {
		return nil, err
	}
	return &Module{Base: base, state: state}, nil
}

// CurrentSystem returns the system the commander is in. Callers must not
// modify it.
func (m *Module) CurrentSystem() *StarSystem { return &m.state.Current }

// PreviousSystem returns the system before the last jump.
func (m *Module) PreviousSystem() *StarSystem { return &m.state.Previous }

// CommanderName returns the name from the last Commander event.
func (m *Module) CommanderName() string { return m.commanderName }

// GameVersion returns the version and build from the journal header.
func (m *Module) GameVersion() (version, build string) { return m.gameVersion, m.gameBuild }

// Odyssey reports whether the game runs the Odyssey expansion.
func (m *Module) Odyssey() bool { return m.odyssey }

// Disable warns that other modules depend on core.
func (m *Module) Disable() {
	m.Base.Disable()
	m.Print("disabling core can break modules that depend on it, re-enable it unless you know what you are doing")
}

func (m *Module) HandleEvent(ctx context.Context, record journal.Record, tasks *subscriber.TaskGroup) error {
	if err := m.Base.HandleEvent(ctx, record, tasks); err != nil {
		return err
	}
	if m.state.EventStream && !record.Synthetic() {
		m.Print(record.Event)
	}

	switch record.Event {
	case "Commander":
		name := record.String("Name")
		if name != m.commanderName {
			m.commanderName = name
			m.Printf("Welcome, Commander %s", name)
		}
		return nil

	case "Fileheader":
		m.gameVersion = record.String("gameversion")
		m.gameBuild = record.String("build")
		m.odyssey, _ = record.Bool("Odyssey")
		return nil

	case "LoadGame":
		m.horizons, _ = record.Bool("Horizons")
		m.odyssey, _ = record.Bool("Odyssey")
		if version := record.String("gameversion"); version != "" {
			m.gameVersion = version
			m.gameBuild = record.String("build")
		}
		return nil

	case "Location":
		system, err := systemFromRecord(record)
		if err != nil {
			return err
		}
		if !strings.EqualFold(system.Name, m.state.Current.Name) {
			m.state.Current = system
		}
		return m.SaveState()

	case "FSDJump", "CarrierJump":
		system, err := systemFromRecord(record)
		if err != nil {
			return err
		}
		m.state.Previous = m.state.Current
		m.state.Current = system
		if err := m.SaveState(); err != nil {
			return err
		}
		if record.Event == "FSDJump" {
			distance := Distance(m.state.Previous.Coordinates, system.Coordinates)
			m.Printf("Jumped %.2f Ly to system: %s", distance, system.Name)
		} else {
			m.Printf("Carrier jumped to system: %s", system.Name)
		}
		return nil

	case "Scan":
		if err := m.recordScan(record); err != nil {
			return err
		}
		return m.SaveState()

	case "FSSBodySignals":
		if err := m.recordSignals(record); err != nil {
			return err
		}
		return m.SaveState()

	case "SAAScanComplete", "SAASignalsFound":
		id, fields, err := bodyFields(record)
		if err != nil {
			return err
		}
		bodies := &m.state.Current.Bodies
		bodies.Merge(id, fields)
		if record.Event == "SAAScanComplete" {
			bodies.Record(SAAScan, id)
		} else {
			bodies.Record(SAASignal, id)
		}
		return m.SaveState()
	}
	return nil
}

func systemFromRecord(record journal.Record) (StarSystem, error) {
	system := StarSystem{Name: record.String("StarSystem"), Bodies: newBodies()}
	var position []float64
	if err := record.Field("StarPos", &position); err != nil || len(position) != 3 {
		return StarSystem{}, fmt.Errorf("%s event without a valid StarPos", record.Event)
	}
	copy(system.Coordinates[:], position)
	system.Address, _ = record.Int("SystemAddress")
	return system, nil
}

func bodyFields(record journal.Record) (int64, map[string]any, error) {
	id, ok := record.Int("BodyID")
	if !ok {
		id = -1
	}
	fields, err := record.Map()
	if err != nil {
		return 0, nil, fmt.Errorf("decoding %s: %w", record.Event, err)
	}
	return id, fields, nil
}

func (m *Module) recordScan(record journal.Record) error {
	id, fields, err := bodyFields(record)
	if err != nil {
		return err
	}
	bodies := &m.state.Current.Bodies
	bodies.Merge(id, fields)

	isStar := record.Has("StarType")
	isCluster := strings.Contains(record.String("BodyName"), "Cluster")
	isPlanet := !isStar && !isCluster
	never := func(key string) bool {
		value, ok := record.Bool(key)
		return ok && !value
	}

	if never("WasDiscovered") {
		bodies.Record(FirstDiscovery, id)
		switch {
		case isCluster:
			bodies.Record(FirstDiscoveryCluster, id)
		case isStar:
			bodies.Record(FirstDiscoveryStar, id)
		default:
			bodies.Record(FirstDiscoveryPlanet, id)
		}
	}
	if never("WasMapped") {
		bodies.Record(FirstPossibleMap, id)
		if isPlanet {
			bodies.Record(FirstPossibleMapPlanet, id)
		}
	}
	if never("WasFootfalled") {
		bodies.Record(FirstPossibleFootfall, id)
		if isPlanet {
			bodies.Record(FirstPossibleFootfallPlanet, id)
		}
	}

	if isCluster {
		bodies.Record(Cluster, id)
		return nil
	}
	if record.Has("Rings") {
		bodies.Record(Ringed, id)
	}
	if isStar {
		bodies.Record(Star, id)
		return nil
	}

	if record.String("TerraformState") != "" {
		bodies.Record(Terraformable, id)
	}
	if record.String("Volcanism") != "" {
		bodies.Record(Volcanic, id)
	}
	if landable, _ := record.Bool("Landable"); landable {
		bodies.Record(Landable, id)
	}
	if atmosphere := record.String("AtmosphereType"); atmosphere != "" && atmosphere != "None" {
		bodies.Record(Atmospheric, id)
	}
	bodies.Record(planetClassAttribute(record.String("PlanetClass")), id)
	bodies.Record(Planet, id)
	return nil
}

func planetClassAttribute(planetClass string) Attribute {
	switch planetClass {
	case "Icy body":
		return IcyBody
	case "Rocky ice body":
		return RockyIcyBody
	case "Rocky body":
		return RockyBody
	case "Metal rich body":
		return MetalRichBody
	case "High metal content body":
		return HighMetalContentBody
	case "Earthlike body":
		return EarthLikeWorld
	case "Ammonia world":
		return AmmoniaWorld
	case "Water world":
		return WaterWorld
	default:
		return GasGiant
	}
}

func (m *Module) recordSignals(record journal.Record) error {
	id, fields, err := bodyFields(record)
	if err != nil {
		return err
	}
	bodies := &m.state.Current.Bodies
	bodies.Merge(id, fields)

	var signals []struct {
		Type string `json:"Type"`
	}
	if err := record.Field("Signals", &signals); err != nil {
		return fmt.Errorf("decoding FSSBodySignals signals: %w", err)
	}
	for _, signal := range signals {
		switch signal.Type {
		case SignalBiological:
			bodies.Record(Biological, id)
		case SignalGeological:
			bodies.Record(Geological, id)
		case SignalGuardian:
			bodies.Record(Guardian, id)
		case SignalThargoid:
			bodies.Record(Thargoid, id)
		}
	}
	return nil
}

func (m *Module) HandleCommand(ctx context.Context, args []string, tasks *subscriber.TaskGroup) error {
	if m.Command(args) {
		return nil
	}

	switch args[1] {
	case "eventstream":
		if len(args) < 3 {
			m.Print("usage: core eventstream on|off")
			return nil
		}
		switch args[2] {
		case "on", "enable":
			if m.state.EventStream {
				m.Print("event stream display already on")
				return nil
			}
			m.state.EventStream = true
			m.Print("event stream is now displayed")
		case "off", "disable":
			if !m.state.EventStream {
				m.Print("event stream display already off")
				return nil
			}
			m.state.EventStream = false
			m.Print("event stream is no longer displayed")
		default:
			m.Print("usage: core eventstream on|off")
			return nil
		}
		return m.SaveState()

	case "system":
		current := m.state.Current
		m.Printf("%s (%d stars, %d planets)", current.Name, current.Bodies.Count(Star), current.Bodies.Count(Planet))
		return nil
	}

	m.Printf("unknown command %q", args[1])
	return nil
}
