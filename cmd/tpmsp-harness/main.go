// Command tpmsp-harness drives a Partition against a FakeMMIO backend,
// useful for exercising the Notification and TPM services without a real
// firmware transport.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/pprof"
	"syscall"
	"time"

	"github.com/ffa-sp/tpmsp"
	"github.com/ffa-sp/tpmsp/internal/dispatch"
	"github.com/ffa-sp/tpmsp/internal/logging"
)

func main() {
	var (
		verbose   = flag.Bool("v", false, "Verbose output")
		monitorID = flag.Uint("monitor", 0xF00D, "Monitor partition ID allowed to call MANAGE_LOCALITY")
		crb       = flag.Bool("crb", true, "Present a CRB-style backend (false selects FIFO/TIS)")
	)
	flag.Parse()

	logConfig := logging.DefaultConfig()
	if *verbose {
		logConfig.Level = logging.LevelDebug
	}
	logger := logging.NewLogger(logConfig)
	logging.SetDefault(logger)

	mmio := tpmsp.NewFakeMMIO(tpmsp.NumLocalities * 0x1000)
	if *crb {
		mmio.Write32(0x30, 1) // InterfaceId: CRB, no idle bypass
	}
	setter := &tpmsp.MockNotificationSetter{}

	p, err := tpmsp.CreateAndServe(nil, setter, mmio, uint16(*monitorID), &tpmsp.Options{Logger: logger})
	if err != nil {
		logger.Error("failed to create partition", "error", err)
		os.Exit(1)
	}

	logger.Info("partition created", "monitor", *monitorID, "crb", *crb)
	fmt.Printf("Partition running. Notification UUID: %x\n", tpmsp.NotificationServiceUUID)
	fmt.Printf("TPM UUID: %x\n", tpmsp.TPMServiceUUID)
	fmt.Printf("\nPress Ctrl+C to stop...\n")
	fmt.Printf("Send SIGUSR1 (kill -USR1 %d) to dump goroutine stacks\n", os.Getpid())

	var req dispatch.Message
	req.Arg[0], req.Arg[1] = packUUID(tpmsp.TPMServiceUUID)
	resp := p.Dispatcher.Handle(req)
	fmt.Printf("GET_INTERFACE_VERSION -> status=%d version=%#x\n", int32(resp.Arg[0]), resp.Arg[1])

	stackDumpCh := make(chan os.Signal, 1)
	signal.Notify(stackDumpCh, syscall.SIGUSR1)
	go func() {
		for range stackDumpCh {
			buf := make([]byte, 1<<20)
			n := runtime.Stack(buf, true)
			fmt.Fprintf(os.Stderr, "\n=== GOROUTINE STACK DUMP ===\n%s\n", buf[:n])
			if f, err := os.Create(fmt.Sprintf("tpmsp-stacks-%d.txt", time.Now().Unix())); err == nil {
				f.Write(buf[:n])
				pprof.Lookup("goroutine").WriteTo(f, 2)
				f.Close()
			}
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	snap := p.Metrics.Snapshot()
	logger.Info("shutting down", "registrations", snap.Registrations, "raises", snap.Raises)
	os.Exit(0)
}

func packUUID(u [16]byte) (hi, lo uint64) {
	for i := 0; i < 8; i++ {
		hi |= uint64(u[i]) << (8 * (7 - i))
		lo |= uint64(u[8+i]) << (8 * (7 - i))
	}
	return
}
