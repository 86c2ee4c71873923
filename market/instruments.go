package market

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Instrument is the metadata the engine needs about a tradable symbol.
type Instrument struct {
	ID       string `json:"id" yaml:"id"`
	Symbol   string `json:"symbol" yaml:"symbol"`
	Exchange string `json:"exchange,omitempty" yaml:"exchange,omitempty"`
	Tradable bool   `json:"tradable" yaml:"tradable"`
}

// InstrumentLookup resolves an instrument id to its metadata.
type InstrumentLookup interface {
	Lookup(id string) (Instrument, bool)
}

// StaticInstruments is an in-memory InstrumentLookup.
type StaticInstruments map[string]Instrument

func (s StaticInstruments) Lookup(id string) (Instrument, bool) {
	in, ok := s[id]
	return in, ok
}

// Instruments is a small default universe used by the CLI and tests.
var Instruments = StaticInstruments{
	"AAPL": {ID: "AAPL", Symbol: "AAPL", Exchange: "NASDAQ", Tradable: true},
	"MSFT": {ID: "MSFT", Symbol: "MSFT", Exchange: "NASDAQ", Tradable: true},
	"NVDA": {ID: "NVDA", Symbol: "NVDA", Exchange: "NASDAQ", Tradable: true},
	"SPY":  {ID: "SPY", Symbol: "SPY", Exchange: "NYSEARCA", Tradable: true},
}

// ReadInstruments decodes a YAML or JSON list of instruments.
func ReadInstruments(r io.Reader) (StaticInstruments, error) {
	var list []Instrument
	if err := yaml.NewDecoder(r).Decode(&list); err != nil {
		return nil, fmt.Errorf("decode instruments: %w", err)
	}

	out := make(StaticInstruments, len(list))
	for i, in := range list {
		if in.ID == "" {
			return nil, fmt.Errorf("instrument %d: id is required", i)
		}
		if in.Symbol == "" {
			in.Symbol = in.ID
		}
		out[in.ID] = in
	}
	return out, nil
}
