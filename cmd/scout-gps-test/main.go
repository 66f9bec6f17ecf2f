package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tony-sparks-nz/Scout-GPS-Studio/internal/acceptance"
	"github.com/tony-sparks-nz/Scout-GPS-Studio/internal/clock"
	"github.com/tony-sparks-nz/Scout-GPS-Studio/internal/gpsmanager"
	"github.com/tony-sparks-nz/Scout-GPS-Studio/internal/gpsport"
	"github.com/tony-sparks-nz/Scout-GPS-Studio/internal/optimize"
	"github.com/tony-sparks-nz/Scout-GPS-Studio/internal/report"
	"github.com/tony-sparks-nz/Scout-GPS-Studio/internal/session"
)

var (
	portName     string
	baudRate     int
	autoFlag     bool
	listFlag     bool
	logLevel     string
	optimizeFlag bool
)

func init() {
	flag.StringVar(&portName, "port", "", "Serial port name (e.g. COM3, /dev/ttyUSB0)")
	flag.IntVar(&baudRate, "baud", 9600, "Baud rate")
	flag.BoolVar(&autoFlag, "auto", false, "Auto-detect the GPS port and baud rate")
	flag.BoolVar(&listFlag, "list", false, "List available serial ports and exit")
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.BoolVar(&optimizeFlag, "optimize", false, "Run the u-blox optimization sequence instead of the acceptance test")
	flag.Parse()
}

func main() {
	logger := logrus.New()
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		logger.Fatalf("invalid log level: %v", err)
	}
	logger.SetLevel(level)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	manager := gpsmanager.New(func() gpsport.Port { return gpsport.NewSerialPort() }, logger)
	store := report.NewStore()
	sess := session.New(manager, store, clock.Real(), logger)

	if listFlag {
		resp := sess.ListSerialPorts()
		if !resp.Success {
			logger.Fatalf("list ports: %s", resp.Error)
		}
		for _, p := range *resp.Data {
			fmt.Printf("%s\tlikely-gnss=%v\tvid=%s\tpid=%s\n", p.Path, p.LikelyGNSS, p.VID, p.PID)
		}
		return
	}

	if autoFlag {
		resp := sess.AutoDetectGPS()
		if !resp.Success {
			logger.Fatalf("auto-detect: %s", resp.Error)
		}
		portName = resp.Data.Port.Path
		baudRate = resp.Data.Baud
		logger.Infof("auto-detected %s at %d baud", portName, baudRate)
	}

	if portName == "" {
		logger.Fatal("no port specified; pass -port or -auto")
	}

	if connResp := sess.ConnectGPS(portName, baudRate); !connResp.Success {
		logger.Fatalf("connect: %s", connResp.Error)
	}
	defer sess.DisconnectGPS()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	if optimizeFlag {
		runOptimization(sess, logger, sigCh)
		return
	}
	runAcceptanceTest(sess, logger, sigCh)
}

func runAcceptanceTest(sess *session.Session, logger logrus.FieldLogger, sigCh chan os.Signal) {
	if resp := sess.StartTest(); !resp.Success {
		logger.Fatalf("start test: %s", resp.Error)
	}

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-sigCh:
			logger.Info("interrupted, aborting test")
			sess.AbortTest()
			return
		case <-ticker.C:
			status := sess.GetTestStatus()
			if !status.Success {
				logger.Fatalf("get test status: %s", status.Error)
			}
			logger.Infof("verdict=%s", status.Data.Verdict)

			switch status.Data.Verdict {
			case acceptance.VerdictPass, acceptance.VerdictFail, acceptance.VerdictTimedOut:
				for _, c := range status.Data.Criteria {
					fmt.Printf("  %-20s expected %-16s actual %-16s pass=%v\n", c.Name, c.Expected, c.Actual, c.Passed)
				}
				saveResp := sess.SaveTestReport()
				if !saveResp.Success {
					logger.Errorf("save report: %s", saveResp.Error)
					return
				}
				fmt.Printf("report saved to %s\n", *saveResp.Data)
				return
			}
		}
	}
}

func runOptimization(sess *session.Session, logger logrus.FieldLogger, sigCh chan os.Signal) {
	if resp := sess.StartOptimization(); !resp.Success {
		logger.Fatalf("start optimization: %s", resp.Error)
	}

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-sigCh:
			logger.Info("interrupted, resetting optimization")
			sess.ResetOptimization()
			return
		case <-ticker.C:
			status := sess.GetOptimizationStatus()
			logger.Infof("phase=%s", status.Data.Phase)

			switch status.Data.Phase {
			case optimize.PhaseComplete:
				fmt.Printf("HDOP improvement: %.1f%%\n", status.Data.Report.HDOPImprovementPct)
				return
			case optimize.PhaseError:
				logger.Errorf("optimization failed: %s", status.Data.Error)
				return
			}
		}
	}
}
