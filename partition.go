// Package tpmsp implements a secure partition exposing a Notification
// Service and a TPM 2.0 CRB service behind a firmware partition-message
// interface.
package tpmsp

import (
	"github.com/ffa-sp/tpmsp/internal/dispatch"
	"github.com/ffa-sp/tpmsp/internal/interfaces"
	"github.com/ffa-sp/tpmsp/internal/logging"
	"github.com/ffa-sp/tpmsp/internal/notif"
	"github.com/ffa-sp/tpmsp/internal/testbridge"
	"github.com/ffa-sp/tpmsp/internal/tpm"
	"github.com/ffa-sp/tpmsp/internal/tpm/backend"
)

// Options carries the optional collaborators a Partition is built with.
type Options struct {
	Logger   *logging.Logger
	Observer interfaces.Observer
}

// Partition is the top-level orchestrator: it owns the Notification
// Service, the TPM Service, and the Service Dispatcher that routes
// incoming messages between them.
type Partition struct {
	Config     *Config
	Dispatcher *dispatch.Dispatcher
	Metrics    *Metrics

	notif *notif.Service
	tpm   *tpm.Service
}

// CreateAndServe wires a Partition together: builds the TPM backend
// translator over mmio (auto-detecting CRB vs FIFO), constructs the
// Notification Service bound to setter, and returns a Dispatcher ready to
// route Messages between them.
func CreateAndServe(cfg *Config, setter interfaces.NotificationSetter, mmio MMIO, monitorPartitionID uint16, opts *Options) (*Partition, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if opts == nil {
		opts = &Options{}
	}

	logger := opts.Logger
	if logger == nil {
		logger = logging.Default()
	}
	observer := opts.Observer
	metrics := NewMetrics()
	if observer == nil {
		observer = metrics
	}

	timeouts := backend.Timeouts{
		A: cfg.TimeoutA, B: cfg.TimeoutB, C: cfg.TimeoutC, D: cfg.TimeoutD,
		Max: cfg.TimeoutMax, PollInterval: cfg.PollInterval,
	}
	be, err := backend.New(mmio, cfg.LocalityStride, timeouts)
	if err != nil {
		return nil, WrapError("CreateAndServe", err)
	}

	notifSvc := notif.NewService(setter, logger, observer)
	tpmSvc := tpm.NewService(be, monitorPartitionID, logger, observer)
	bridge := testbridge.New(notifSvc)
	d := dispatch.New(notifSvc, tpmSvc, bridge, logger)

	logger.Info("partition created", "monitor", monitorPartitionID, "crb", be.IsCRBInterface())

	return &Partition{
		Config:     cfg,
		Dispatcher: d,
		Metrics:    metrics,
		notif:      notifSvc,
		tpm:        tpmSvc,
	}, nil
}

var _ interfaces.Observer = (*Metrics)(nil)
