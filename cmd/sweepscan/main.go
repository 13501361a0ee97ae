package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/banshee-data/sweep/driver"
	"github.com/banshee-data/sweep/driver/libsweep"
	"github.com/banshee-data/sweep/internal/config"
	"github.com/banshee-data/sweep/internal/scanstat"
	"github.com/banshee-data/sweep/internal/version"
	"github.com/banshee-data/sweep/sweep"
)

var (
	configPath  = flag.String("config", "", "Path to a JSON session config (optional)")
	port        = flag.String("port", config.DefaultPort, "Serial port the Sweep is connected to")
	scans       = flag.Int("scans", 1, "Number of sweeps to read (0 = until interrupted)")
	motorSpeed  = flag.Int("motor-speed", 0, "Motor speed in Hz to set before scanning (unset = leave as is)")
	summary     = flag.Bool("summary", false, "Print a summary per sweep instead of every sample")
	waitReady   = flag.Bool("wait-ready", true, "Wait for the motor to report ready before scanning")
	requireABI  = flag.Bool("require-abi", true, "Refuse to run against an ABI-incompatible driver")
	listPorts   = flag.Bool("list-ports", false, "List serial ports and exit")
	showVersion = flag.Bool("version", false, "Print the version and exit")
)

// motorReadyPoll is how often motor readiness is polled.
var motorReadyPoll = 100 * time.Millisecond

var errABIMismatch = errors.New("driver is not ABI compatible with this build")

// flagOverrides returns a config holding only the flags set on the command
// line, so they take precedence over the config file without its values being
// clobbered by flag defaults.
func flagOverrides() *config.SweepConfig {
	o := config.EmptySweepConfig()
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "port":
			v := *port
			o.Port = &v
		case "scans":
			v := *scans
			o.Scans = &v
		case "motor-speed":
			v := *motorSpeed
			o.MotorSpeedHz = &v
		case "summary":
			v := *summary
			o.Summary = &v
		case "wait-ready":
			v := *waitReady
			o.WaitMotorReady = &v
		case "require-abi":
			v := *requireABI
			o.RequireABICompatible = &v
		}
	})
	return o
}

func printPorts(out io.Writer) error {
	ports, err := sweep.ListPorts()
	if err != nil {
		return err
	}
	if len(ports) == 0 {
		fmt.Fprintln(out, "No serial ports found")
		return nil
	}
	for _, p := range ports {
		marker := " "
		if p.Candidate {
			marker = "*"
		}
		if p.USB {
			fmt.Fprintf(out, "%s %s (USB %s:%s %s %s)\n", marker, p.Name, p.VID, p.PID, p.Product, p.SerialNumber)
		} else {
			fmt.Fprintf(out, "%s %s\n", marker, p.Name)
		}
	}
	return nil
}

// waitMotorReady polls until the motor reports ready, the timeout passes or
// ctx is cancelled.
func waitMotorReady(ctx context.Context, dev *sweep.Device, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(motorReadyPoll)
	defer ticker.Stop()

	for {
		ready, err := dev.MotorReady()
		if err != nil {
			return err
		}
		if ready {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("motor not ready: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

func printScan(out io.Writer, n int, samples []sweep.Sample, asSummary bool) {
	if asSummary {
		fmt.Fprintf(out, "Scan %d: %s\n", n, scanstat.Summarize(samples))
		return
	}
	for _, s := range samples {
		fmt.Fprintf(out, "Angle %d, Distance %d, Signal Strength: %d\n", s.Angle, s.Distance, s.SignalStrength)
	}
}

// run performs one scanning session: report the driver, open the device,
// optionally set the motor speed, read the requested sweeps and shut down.
func run(ctx context.Context, drv driver.Driver, cfg *config.SweepConfig, out io.Writer) error {
	fmt.Fprintf(out, "Version %s\n", sweep.Version(drv))
	compatible := sweep.IsABICompatible(drv)
	fmt.Fprintf(out, "ABI compatible: %v\n", compatible)
	if !compatible && cfg.GetRequireABICompatible() {
		return errABIMismatch
	}

	dev, err := sweep.Open(drv, cfg.GetPort())
	if err != nil {
		return err
	}
	defer func() {
		if err := dev.Close(); err != nil {
			log.Printf("failed to close device: %v", err)
		}
	}()

	speed, err := dev.MotorSpeed()
	if err != nil {
		return fmt.Errorf("failed to read motor speed: %w", err)
	}
	fmt.Fprintf(out, "Motor speed: %d\n", speed)

	rate, err := dev.SampleRate()
	if err != nil {
		return fmt.Errorf("failed to read sample rate: %w", err)
	}
	fmt.Fprintf(out, "Sample rate: %d\n", rate)

	if hz, ok := cfg.GetMotorSpeedHz(); ok && hz != speed {
		fmt.Fprintf(out, "Setting motor speed to %d ...\n", hz)
		if err := dev.SetMotorSpeed(hz); err != nil {
			return fmt.Errorf("failed to set motor speed: %w", err)
		}
	}

	if cfg.GetWaitMotorReady() {
		if err := waitMotorReady(ctx, dev, cfg.GetMotorReadyTimeout()); err != nil {
			return err
		}
	}

	fmt.Fprintln(out, "Starting scan ...")
	if err := dev.StartScanning(); err != nil {
		return fmt.Errorf("failed to start scanning: %w", err)
	}

	scanErr := func() error {
		total := cfg.GetScans()
		for n := 1; total == 0 || n <= total; n++ {
			select {
			case <-ctx.Done():
				log.Printf("interrupted after %d scans", n-1)
				return nil
			default:
			}
			samples, err := dev.Scan()
			if err != nil {
				return fmt.Errorf("failed to read scan %d: %w", n, err)
			}
			printScan(out, n, samples, cfg.GetSummary())
		}
		return nil
	}()

	if err := dev.StopScanning(); err != nil {
		return errors.Join(scanErr, fmt.Errorf("failed to stop scanning: %w", err))
	}
	return scanErr
}

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	if *listPorts {
		if err := printPorts(os.Stdout); err != nil {
			log.Fatalf("failed to list ports: %v", err)
		}
		return
	}

	cfg := config.EmptySweepConfig()
	if *configPath != "" {
		var err error
		cfg, err = config.LoadSweepConfig(*configPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
		log.Printf("loaded config from %s", *configPath)
	}
	cfg = cfg.Override(flagOverrides())
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid options: %v", err)
	}

	drv, err := libsweep.Open()
	if err != nil {
		log.Fatalf("failed to load driver: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, drv, cfg, os.Stdout); err != nil {
		stop()
		log.Fatalf("sweep session failed: %v", err)
	}
}
