package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/srg/bluectl/manager"
)

// monitorCmd represents the monitor command
var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Watch nearby Bluetooth devices",
	Long: `Continuously scan for Bluetooth devices and print every registry
update until interrupted. Connection and pairing events are announced
as they happen.`,
	RunE: runMonitor,
}

var (
	monitorTick    time.Duration
	monitorNoColor bool
	monitorDedupe  bool
)

func init() {
	monitorCmd.Flags().DurationVarP(&monitorTick, "tick", "t", 100*time.Millisecond, "Callback drain interval")
	monitorCmd.Flags().BoolVar(&monitorNoColor, "no-color", false, "Disable colored output")
	monitorCmd.Flags().BoolVar(&monitorDedupe, "dedupe", false, "Collapse duplicate addresses to one entry")
}

func runMonitor(cmd *cobra.Command, args []string) error {
	logger, err := configureLogger(cmd)
	if err != nil {
		return err
	}

	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := manager.LoadConfig(configPath)
	if err != nil {
		return err
	}
	if monitorDedupe {
		cfg.DeduplicateAddresses = true
	}

	cmd.SilenceUsage = true

	if monitorNoColor || !term.IsTerminal(int(os.Stdout.Fd())) {
		color.NoColor = true
	}

	mgr := manager.New(cfg, logger)
	defer mgr.Stop()

	mgr.AddCallbacks(manager.Callbacks{
		DevicesUpdated: printDeviceTable,
		DeviceConnected: func(d manager.Device) {
			color.Green("connected: %s [%s]", d.Name, d.Address)
		},
		DeviceDisconnected: func(d manager.Device) {
			color.Yellow("disconnected: %s [%s]", d.Name, d.Address)
		},
	})

	mgr.SetActive(true)
	mgr.StartScan()

	fmt.Println("Scanning for Bluetooth devices... (Ctrl+C to stop)")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	ticker := time.NewTicker(monitorTick)
	defer ticker.Stop()

	for {
		select {
		case <-sig:
			mgr.SetActive(false)
			mgr.StopScan()
			return nil
		case <-ticker.C:
			mgr.ProcessCallbacks()
		}
	}
}

func printDeviceTable(devices []manager.Device) {
	if len(devices) == 0 {
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tADDRESS\tTYPE\tRSSI\tSTATUS")
	for _, d := range devices {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
			d.Name, d.Address, d.Type, d.RSSI, deviceStatus(d))
	}
	w.Flush()
	fmt.Println()
}

func deviceStatus(d manager.Device) string {
	switch {
	case d.Connected:
		return color.GreenString("connected")
	case d.Paired:
		return color.CyanString("paired")
	default:
		return ""
	}
}
