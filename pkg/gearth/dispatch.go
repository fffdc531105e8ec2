package gearth

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/Sudo-Ivan/geodata-converter/pkg/dataset"
)

// Strategy extracts a reconciled dataset from a document.
type Strategy interface {
	Name() string
	Extract(doc *Document) (*dataset.Dataset, error)
}

// DescriptionStrategy reads attributes from HTML tables in Placemark
// descriptions. Document parses the KML itself; Table parses each
// description.
type DescriptionStrategy struct {
	Document Parser
	Table    Parser
}

// Name implements Strategy.
func (DescriptionStrategy) Name() string { return "description" }

// Extract implements Strategy.
func (s DescriptionStrategy) Extract(doc *Document) (*dataset.Dataset, error) {
	layer, err := LoadLayer(doc, s.Document)
	if err != nil {
		return nil, err
	}
	tbl, err := DescriptionTables(layer, s.Table)
	if err != nil {
		return nil, err
	}
	ds, err := dataset.Reconcile(tbl, layer)
	if err != nil {
		return nil, err
	}
	ds.Name = layer.Name
	return ds, nil
}

// StructuredStrategy reads attributes from SchemaData/SimpleData records.
type StructuredStrategy struct {
	XML     Parser
	Options StructuredOptions
}

// Name implements Strategy.
func (StructuredStrategy) Name() string { return "structured" }

// Extract implements Strategy.
func (s StructuredStrategy) Extract(doc *Document) (*dataset.Dataset, error) {
	root, err := s.XML.Parse(doc.Text)
	if err != nil {
		return nil, err
	}
	layer := ReadLayer(root)
	tbl := StructuredRows(root, s.Options)
	if tbl.Len() == 0 && layer.Len() > 0 {
		return nil, ErrNoStructuredRows
	}
	ds, err := dataset.Reconcile(tbl, layer)
	if err != nil {
		return nil, err
	}
	ds.Name = layer.Name
	return ds, nil
}

// State is a step of the dispatcher.
type State int

const (
	StateInspect State = iota
	StateTryPrimary
	StateTryFallback
	StateSuccess
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateInspect:
		return "INSPECT"
	case StateTryPrimary:
		return "TRY_PRIMARY"
	case StateTryFallback:
		return "TRY_FALLBACK"
	case StateSuccess:
		return "SUCCESS"
	case StateFailed:
		return "FAILED"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// structuredMarker is searched for, lower-cased, to pick the primary strategy.
const structuredMarker = "<schemadata"

// Options configures a Dispatcher.
type Options struct {
	// Markup selects the description table parser: "html" (default) or
	// "xml". KML documents are always read with the XML backend.
	Markup string
	// IncludeFeatureName adds the Placemark name to structured records.
	IncludeFeatureName bool
	// OnFallback is called when the primary strategy fails recoverably.
	OnFallback func(primary string, err error)
	Logger     zerolog.Logger
}

// DefaultOptions returns the dispatcher defaults.
func DefaultOptions() Options {
	return Options{Markup: "html", IncludeFeatureName: true, Logger: zerolog.Nop()}
}

// Dispatcher chooses between the structured and description strategies and
// allows exactly one swap when the first choice fails.
type Dispatcher struct {
	Structured  Strategy
	Description Strategy
	OnFallback  func(primary string, err error)
	Logger      zerolog.Logger
}

// NewDispatcher builds a dispatcher from opts.
func NewDispatcher(opts Options) (*Dispatcher, error) {
	table, err := NewParser(opts.Markup)
	if err != nil {
		return nil, err
	}
	xml := XMLParser{}
	return &Dispatcher{
		Structured: StructuredStrategy{
			XML:     xml,
			Options: StructuredOptions{IncludeFeatureName: opts.IncludeFeatureName},
		},
		Description: DescriptionStrategy{Document: xml, Table: table},
		OnFallback:  opts.OnFallback,
		Logger:      opts.Logger,
	}, nil
}

// Result describes one dispatcher run. Trace lists the visited states.
type Result struct {
	Dataset  *dataset.Dataset
	Strategy string
	FellBack bool
	Trace    []State
}

// ReadFile reads a .kml or .kmz file and runs the dispatcher on it.
func (d *Dispatcher) ReadFile(path string) (*Result, error) {
	doc, err := ReadDocument(path)
	if err != nil {
		return &Result{Trace: []State{StateInspect, StateFailed}}, err
	}
	return d.Run(doc)
}

// Run extracts the dataset of doc. The returned Result is never nil; on
// failure it carries only the trace.
func (d *Dispatcher) Run(doc *Document) (*Result, error) {
	res := &Result{Trace: []State{StateInspect}}
	log := d.Logger.With().Str("path", doc.Path).Logger()

	primary, fallback := d.Description, d.Structured
	if strings.Contains(strings.ToLower(doc.Text), structuredMarker) {
		primary, fallback = d.Structured, d.Description
	}
	log.Debug().Str("primary", primary.Name()).Msg("Inspected document")

	state := StateTryPrimary
	var primaryErr error
	for {
		res.Trace = append(res.Trace, state)
		switch state {
		case StateTryPrimary:
			ds, err := primary.Extract(doc)
			switch {
			case err == nil:
				res.Dataset, res.Strategy = ds, primary.Name()
				state = StateSuccess
			case Recoverable(err):
				log.Debug().Err(err).Str("strategy", primary.Name()).Msg("Primary extraction failed, trying fallback")
				if d.OnFallback != nil {
					d.OnFallback(primary.Name(), err)
				}
				primaryErr = err
				state = StateTryFallback
			default:
				log.Debug().Err(err).Str("strategy", primary.Name()).Msg("Primary extraction failed")
				res.Trace = append(res.Trace, StateFailed)
				return res, fmt.Errorf("%s extraction: %w", primary.Name(), err)
			}

		case StateTryFallback:
			res.FellBack = true
			ds, err := fallback.Extract(doc)
			if err != nil {
				log.Debug().Err(err).Str("strategy", fallback.Name()).Msg("Fallback extraction failed")
				res.Trace = append(res.Trace, StateFailed)
				return res, fmt.Errorf("%s extraction failed after %s extraction failed (%v): %w",
					fallback.Name(), primary.Name(), primaryErr, err)
			}
			res.Dataset, res.Strategy = ds, fallback.Name()
			state = StateSuccess

		case StateSuccess:
			if res.Dataset.Name == "" {
				res.Dataset.Name = baseName(doc.Path)
			}
			log.Debug().
				Str("strategy", res.Strategy).
				Int("rows", res.Dataset.Table.Len()).
				Bool("fallback", res.FellBack).
				Msg("Extracted attributes")
			return res, nil
		}
	}
}

func baseName(path string) string {
	name := filepath.Base(path)
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// ReadText runs the dispatcher on KML markup that is already in memory.
func (d *Dispatcher) ReadText(name, text string) (*Result, error) {
	return d.Run(&Document{Path: name, Format: FormatKML, Text: text})
}
