package internal

import (
	"flag"
	"time"
)

// Stage is a flag.Value holding a model stage name.
type Stage struct {
	Name string
}

var _ flag.Value = &Stage{}

func (s *Stage) Set(v string) error {
	s.Name = v
	return nil
}

func (s *Stage) String() string {
	return s.Name
}

// ServeFlags names every option explicitly and aliases each with a
// short option. It covers every field type flagger can register.
type ServeFlags struct {
	Verbose  bool          `flag:"verbose,short=v,help=chatty logging."`
	Port     int           `flag:"port,short=p,help=listen port."`
	Seed     int64         `flag:"seed,short=s,help=dataset seed."`
	Workers  uint          `flag:"workers,short=w,help=worker count."`
	MaxBytes uint64        `flag:"max-bytes,short=B,help=request size cap."`
	Ratio    float64       `flag:"ratio,short=r,help=held out share."`
	Name     string        `flag:"name,short=n,metavar=MODEL,help=model name."`
	Patience time.Duration `flag:"patience,short=t,help=shutdown grace."`
	Stage    *Stage        `flag:"stage,short=S,help=target stage."`
}

// BareFlags leaves naming to the field names.
type BareFlags struct {
	Verbose     bool          `flag:""`
	ListenPort  int           `flag:""`
	RandomSeed  int64         `flag:""`
	WorkerCount uint          `flag:""`
	ByteLimit   uint64        `flag:""`
	SplitRatio  float64       `flag:""`
	ModelName   string        `flag:""`
	GracePeriod time.Duration `flag:""`
	TargetStage *Stage        `flag:""`
}
