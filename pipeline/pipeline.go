// Package pipeline sequences the three transformation stages: HL7 tokenizing,
// ADT^A01 parsing, and episode derivation plus FHIR mapping. One invocation
// of Process handles one raw message; the pipeline holds only immutable
// configuration, so any number of invocations may run concurrently.
package pipeline

import (
	"fmt"
	"time"

	"github.com/zorgbijjou/golang-fhir-models/fhir-models/fhir"

	"github.com/hospicebridge/adtbridge/admission"
	"github.com/hospicebridge/adtbridge/episode"
	"github.com/hospicebridge/adtbridge/fhirmap"
	"github.com/hospicebridge/adtbridge/lib/hl7"
)

// Stage names the pipeline stage a failure originated from. Only the
// tokenizer and parser can fail; episode derivation and FHIR mapping are
// total functions.
type Stage string

const (
	StageTokenize Stage = "tokenize"
	StageParse    Stage = "parse"
)

// Error wraps a stage failure. It adds no failure modes of its own: Unwrap
// exposes the underlying hl7 sentinel or *admission.ParseError for
// errors.Is/errors.As matching.
type Error struct {
	Stage Stage
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("pipeline: %s stage failed: %v", e.Stage, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Config aggregates the configuration of all pipeline stages. Loaded once at
// startup and treated as read-only afterwards.
type Config struct {
	Parser  admission.Config `koanf:"parser"`
	Episode episode.Rules    `koanf:"episode"`
	Mapper  fhirmap.Config   `koanf:"mapper"`
}

func DefaultConfig() Config {
	return Config{
		Parser:  admission.DefaultConfig(),
		Episode: episode.DefaultRules(),
		Mapper:  fhirmap.DefaultConfig(),
	}
}

// Result is the output of one successful pipeline invocation. Every Patient
// is traceable to exactly one admission message and its derived episode
// attributes; components use the admission value for ACKs and audit logging.
type Result struct {
	Admission admission.Message
	Episode   episode.Attributes
	Patient   fhir.Patient
}

// Pipeline is safe for concurrent use.
type Pipeline struct {
	parser *admission.Parser
	engine *episode.Engine
	mapper *fhirmap.Mapper
}

func New(config Config) *Pipeline {
	return &Pipeline{
		parser: admission.NewParser(config.Parser),
		engine: episode.NewEngine(config.Episode),
		mapper: fhirmap.New(config.Mapper),
	}
}

// Process runs one raw HL7 message through tokenize → parse → derive → map.
// referenceDate is the caller's notion of "now", used only for the
// effective-date fallback; Process never reads a wall clock, which keeps
// every invocation deterministic and replayable.
func (p *Pipeline) Process(raw string, referenceDate time.Time) (*Result, error) {
	msg, err := hl7.Parse(raw)
	if err != nil {
		return nil, &Error{Stage: StageTokenize, Err: err}
	}

	adm, err := p.parser.Parse(msg)
	if err != nil {
		return nil, &Error{Stage: StageParse, Err: err}
	}

	attrs := p.engine.Derive(adm, referenceDate)
	return &Result{
		Admission: adm,
		Episode:   attrs,
		Patient:   p.mapper.Patient(adm, attrs),
	}, nil
}
