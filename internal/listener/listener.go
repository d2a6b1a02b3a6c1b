// Package listener consumes decoded meter readings from the radio
// decoder's output stream, one JSON document per line, and normalizes
// them into observations for the discovery tracker.
package listener

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// ErrInvalidProtocol reports a protocol token that is not representable
// as text. Classification must never see such a token: the decode
// boundary fails loudly instead of mismatching deep in string handling.
var ErrInvalidProtocol = errors.New("protocol token is not text")

// Observation is a single decoded reading handed to the tracker.
type Observation struct {
	MeterID     string
	Protocol    string
	Consumption *int
}

// decodedLine mirrors the decoder's JSON output. The protocol token is
// kept raw so numeric tokens can be coerced explicitly, and the message
// body is generic because id and consumption field names vary by
// protocol family.
type decodedLine struct {
	Type    json.RawMessage `json:"Type"`
	Message map[string]any  `json:"Message"`
}

// Field names the protocol families use for the meter id and the
// cumulative consumption count.
var (
	idFields          = []string{"ID", "EndpointID", "ERTSerialNumber"}
	consumptionFields = []string{"Consumption", "LastConsumptionCount", "LastConsumption"}
)

// ParseLine converts one decoder output line into an Observation.
func ParseLine(line []byte) (Observation, error) {
	dec := json.NewDecoder(bytes.NewReader(line))
	dec.UseNumber()

	var raw decodedLine
	if err := dec.Decode(&raw); err != nil {
		return Observation{}, fmt.Errorf("decode line: %w", err)
	}

	protocol, err := coerceProtocol(raw.Type)
	if err != nil {
		return Observation{}, err
	}

	obs := Observation{Protocol: protocol}
	for _, f := range idFields {
		if v, ok := raw.Message[f]; ok {
			obs.MeterID = scalarText(v)
			break
		}
	}
	if obs.MeterID == "" {
		return Observation{}, fmt.Errorf("line has no meter id field")
	}

	for _, f := range consumptionFields {
		if v, ok := raw.Message[f].(json.Number); ok {
			if n, err := v.Int64(); err == nil {
				c := int(n)
				obs.Consumption = &c
				break
			}
		}
	}

	return obs, nil
}

// coerceProtocol turns the raw protocol token into text. Strings pass
// through, numbers become their decimal form, anything else is invalid.
func coerceProtocol(raw json.RawMessage) (string, error) {
	if len(raw) == 0 {
		return "", nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return "", fmt.Errorf("decode protocol: %w", err)
	}
	switch t := v.(type) {
	case string:
		return t, nil
	case json.Number:
		return t.String(), nil
	case nil:
		return "", nil
	default:
		return "", fmt.Errorf("%w: %s", ErrInvalidProtocol, strings.TrimSpace(string(raw)))
	}
}

// scalarText renders a JSON scalar as its textual form.
func scalarText(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}

// Listener feeds observations from a line stream to a handler.
type Listener struct {
	r   io.Reader
	log *slog.Logger
}

// New creates a listener over r, typically the daemon's stdin with the
// decoder piped in.
func New(r io.Reader) *Listener {
	return &Listener{
		r:   r,
		log: slog.Default().With("component", "listener"),
	}
}

// Run reads lines until EOF or ctx cancellation, passing each parsed
// observation to handle. Malformed lines are logged and skipped;
// discovery keeps running on a noisy stream.
func (l *Listener) Run(ctx context.Context, handle func(Observation)) error {
	scanner := bufio.NewScanner(l.r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		obs, err := ParseLine(line)
		if err != nil {
			l.log.Warn("skipping unparseable line", "error", err)
			continue
		}
		handle(obs)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read observations: %w", err)
	}
	return nil
}
