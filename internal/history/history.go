// Package history persists per-aircraft trajectory traces. The binary
// archive format is msgpack for compactness; a JSON exporter exists
// for plotting and ad-hoc inspection.
package history

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/runwaylabs/arrival-simulator/core"
	"github.com/runwaylabs/arrival-simulator/model"
)

// archiveVersion guards against reading archives written by an
// incompatible layout.
const archiveVersion = 1

// Trace is the recorded trajectory of a single aircraft.
type Trace struct {
	AircraftID       int              `json:"aircraft_id" msgpack:"aircraft_id"`
	AppearanceMinute int              `json:"appearance_minute" msgpack:"appearance_minute"`
	UnimpededArrival int              `json:"unimpeded_arrival" msgpack:"unimpeded_arrival"`
	FinalState       model.State      `json:"final_state" msgpack:"final_state"`
	EverReversed     bool             `json:"ever_reversed" msgpack:"ever_reversed"`
	Frames           []model.Snapshot `json:"frames" msgpack:"frames"`
}

// Archive bundles the traces of one run together with the seed that
// produced them, so a trace file is reproducible on its own.
type Archive struct {
	Version int     `json:"version" msgpack:"version"`
	Seed    int64   `json:"seed" msgpack:"seed"`
	Traces  []Trace `json:"traces" msgpack:"traces"`
}

// FromResult builds an archive from a finished run. Traces are ordered
// by aircraft ID.
func FromResult(res *core.RunResult, seed int64) *Archive {
	ar := &Archive{Version: archiveVersion, Seed: seed}
	for _, ac := range res.Aircraft {
		ar.Traces = append(ar.Traces, Trace{
			AircraftID:       ac.ID,
			AppearanceMinute: ac.AppearanceMinute,
			UnimpededArrival: ac.UnimpededArrival,
			FinalState:       ac.State(),
			EverReversed:     ac.EverReversed(),
			Frames:           ac.History(),
		})
	}
	sort.Slice(ar.Traces, func(i, j int) bool {
		return ar.Traces[i].AircraftID < ar.Traces[j].AircraftID
	})
	return ar
}

// WriteArchive encodes the archive as msgpack.
func WriteArchive(w io.Writer, ar *Archive) error {
	enc := msgpack.NewEncoder(w)
	if err := enc.Encode(ar); err != nil {
		return fmt.Errorf("encoding trace archive: %w", err)
	}
	return nil
}

// ReadArchive decodes a msgpack archive and rejects unknown versions.
func ReadArchive(r io.Reader) (*Archive, error) {
	var ar Archive
	dec := msgpack.NewDecoder(r)
	if err := dec.Decode(&ar); err != nil {
		return nil, fmt.Errorf("decoding trace archive: %w", err)
	}
	if ar.Version != archiveVersion {
		return nil, fmt.Errorf("unsupported trace archive version %d", ar.Version)
	}
	return &ar, nil
}

// WriteArchiveFile writes the archive to path, creating or truncating
// the file.
func WriteArchiveFile(path string, ar *Archive) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating trace archive: %w", err)
	}
	defer f.Close()
	if err := WriteArchive(f, ar); err != nil {
		return err
	}
	return f.Close()
}

// ReadArchiveFile reads an archive previously written by
// WriteArchiveFile.
func ReadArchiveFile(path string) (*Archive, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening trace archive: %w", err)
	}
	defer f.Close()
	return ReadArchive(f)
}

// ExportJSON writes the archive as indented JSON.
func ExportJSON(w io.Writer, ar *Archive) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(ar); err != nil {
		return fmt.Errorf("exporting trace archive: %w", err)
	}
	return nil
}
