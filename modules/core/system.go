// Copyright 2026 The EDSST Authors
// SPDX-License-Identifier: Apache-2.0

package core

import (
	"math"
	"slices"
)

// Attribute classifies a body for reports and surveys.
type Attribute string

const (
	FirstDiscovery              Attribute = "first_discovery"
	FirstDiscoveryCluster       Attribute = "first_discovery_cluster"
	FirstDiscoveryStar          Attribute = "first_discovery_star"
	FirstDiscoveryPlanet        Attribute = "first_discovery_planet"
	FirstPossibleMap            Attribute = "first_possible_map"
	FirstPossibleMapPlanet      Attribute = "first_possible_map_planet"
	FirstPossibleFootfall       Attribute = "first_possible_footfall"
	FirstPossibleFootfallPlanet Attribute = "first_possible_footfall_planet"
	SAAScan                     Attribute = "saa_scan"
	SAASignal                   Attribute = "saa_signal"
	Cluster                     Attribute = "cluster"
	Star                        Attribute = "star"
	Planet                      Attribute = "planet"
	IcyBody                     Attribute = "icy_body"
	RockyIcyBody                Attribute = "rocky_icy_body"
	RockyBody                   Attribute = "rocky_body"
	MetalRichBody               Attribute = "metal_rich_body"
	HighMetalContentBody        Attribute = "high_metal_content_body"
	EarthLikeWorld              Attribute = "earth_like_world"
	AmmoniaWorld                Attribute = "ammonia_world"
	WaterWorld                  Attribute = "water_world"
	GasGiant                    Attribute = "gas_giant"
	Landable                    Attribute = "landable"
	Atmospheric                 Attribute = "atmospheric"
	Ringed                      Attribute = "ringed"
	Terraformable               Attribute = "terraformable"
	Volcanic                    Attribute = "volcanic"
	Biological                  Attribute = "biological"
	Geological                  Attribute = "geological"
	Guardian                    Attribute = "guardian"
	Thargoid                    Attribute = "thargoid"
)

// Signal types as written in FSSBodySignals and SAASignalsFound.
const (
	SignalBiological = "$SAA_SignalType_Biological;"
	SignalGeological = "$SAA_SignalType_Geological;"
	SignalGuardian   = "$SAA_SignalType_Guardian;"
	SignalThargoid   = "$SAA_SignalType_Thargoid;"
)

// Body is the union of every journal field seen for one body.
type Body map[string]any

// String returns a string field, or "".
func (b Body) String(key string) string {
	value, _ := b[key].(string)
	return value
}

// Float returns a numeric field, or 0.
func (b Body) Float(key string) float64 {
	switch value := b[key].(type) {
	case float64:
		return value
	case float32:
		return float64(value)
	case int64:
		return float64(value)
	case uint64:
		return float64(value)
	case int:
		return float64(value)
	}
	return 0
}

// SignalCount returns the Count of the signal of signalType, or 0.
func (b Body) SignalCount(signalType string) int {
	signals, _ := b["Signals"].([]any)
	for _, entry := range signals {
		signal, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		if kind, _ := signal["Type"].(string); kind == signalType {
			return int(Body(signal).Float("Count"))
		}
	}
	return 0
}

// Bodies indexes a system's bodies by BodyID and by attribute.
type Bodies struct {
	ByID        map[int64]Body               `cbor:"by_id"`
	ByAttribute map[Attribute]map[int64]bool `cbor:"by_attribute"`
}

func newBodies() Bodies {
	return Bodies{
		ByID:        make(map[int64]Body),
		ByAttribute: make(map[Attribute]map[int64]bool),
	}
}

// Merge copies fields into the body with id, creating it if needed.
func (b *Bodies) Merge(id int64, fields map[string]any) {
	if b.ByID == nil {
		b.ByID = make(map[int64]Body)
	}
	body, ok := b.ByID[id]
	if !ok {
		body = make(Body)
		b.ByID[id] = body
	}
	for key, value := range fields {
		body[key] = value
	}
}

// Record tags body id with attribute.
func (b *Bodies) Record(attribute Attribute, id int64) {
	if b.ByAttribute == nil {
		b.ByAttribute = make(map[Attribute]map[int64]bool)
	}
	ids, ok := b.ByAttribute[attribute]
	if !ok {
		ids = make(map[int64]bool)
		b.ByAttribute[attribute] = ids
	}
	ids[id] = true
}

// IDs returns the BodyIDs tagged with any of attributes, ascending.
func (b *Bodies) IDs(attributes ...Attribute) []int64 {
	var ids []int64
	for _, attribute := range attributes {
		for id := range b.ByAttribute[attribute] {
			if !slices.Contains(ids, id) {
				ids = append(ids, id)
			}
		}
	}
	slices.Sort(ids)
	return ids
}

// With returns the bodies tagged with any of attributes, in BodyID
// order.
func (b *Bodies) With(attributes ...Attribute) []Body {
	ids := b.IDs(attributes...)
	bodies := make([]Body, 0, len(ids))
	for _, id := range ids {
		bodies = append(bodies, b.ByID[id])
	}
	return bodies
}

// Count returns how many bodies carry any of attributes.
func (b *Bodies) Count(attributes ...Attribute) int {
	return len(b.IDs(attributes...))
}

// StarSystem is what core knows about one system.
type StarSystem struct {
	Name        string     `cbor:"name"`
	Coordinates [3]float64 `cbor:"coordinates"`
	Address     int64      `cbor:"address"`
	Bodies      Bodies     `cbor:"bodies"`
}

// Distance returns the distance in light years between two systems.
func Distance(a, b [3]float64) float64 {
	dx, dy, dz := a[0]-b[0], a[1]-b[1], a[2]-b[2]
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}
