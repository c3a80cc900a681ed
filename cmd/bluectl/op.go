package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/srg/bluectl/manager"
)

// One-shot operation commands. Each runs the manager long enough to find
// the target device, drives the operation through an OperationTracker,
// and reports the outcome.

var (
	opTimeout time.Duration
	forgetYes bool
)

var pairCmd = &cobra.Command{
	Use:   "pair <address>",
	Short: "Pair with a device (connects automatically after pairing)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOperation(cmd, args[0], manager.OpPair)
	},
}

var connectCmd = &cobra.Command{
	Use:   "connect <address>",
	Short: "Connect a paired device",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOperation(cmd, args[0], manager.OpConnect)
	},
}

var disconnectCmd = &cobra.Command{
	Use:   "disconnect <address>",
	Short: "Disconnect a connected device",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOperation(cmd, args[0], manager.OpDisconnect)
	},
}

var forgetCmd = &cobra.Command{
	Use:   "forget <address>",
	Short: "Remove a device's pairing record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOperation(cmd, args[0], manager.OpForget)
	},
}

func init() {
	for _, c := range []*cobra.Command{pairCmd, connectCmd, disconnectCmd, forgetCmd} {
		c.Flags().DurationVar(&opTimeout, "timeout", 30*time.Second, "Give up after this long")
	}
	forgetCmd.Flags().BoolVarP(&forgetYes, "yes", "y", false, "Skip the confirmation prompt")
}

func runOperation(cmd *cobra.Command, address string, op manager.Operation) error {
	logger, err := configureLogger(cmd)
	if err != nil {
		return err
	}
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := manager.LoadConfig(configPath)
	if err != nil {
		return err
	}

	cmd.SilenceUsage = true

	mgr := manager.New(cfg, logger)
	defer mgr.Stop()

	tracker := manager.NewOperationTracker(mgr)
	mgr.AddCallbacks(tracker.Callbacks())

	var (
		snapshot []manager.Device
		failMsg  string
	)
	mgr.AddCallbacks(manager.Callbacks{
		DevicesUpdated: func(devices []manager.Device) { snapshot = devices },
		DevicePaired: func(d manager.Device) {
			fmt.Printf("paired: %s [%s]\n", d.Name, d.Address)
		},
		DeviceConnected: func(d manager.Device) {
			fmt.Printf("connected: %s [%s]\n", d.Name, d.Address)
		},
		DeviceDisconnected: func(d manager.Device) {
			fmt.Printf("disconnected: %s [%s]\n", d.Name, d.Address)
		},
		PairFailed: func(msg string) { failMsg = msg },
		OperationFailed: func(d manager.Device, failedOp manager.Operation, msg string) {
			if failedOp == op {
				failMsg = msg
			}
		},
	})

	mgr.SetActive(true)
	mgr.StartScan()
	defer mgr.StopScan()

	deadline := time.Now().Add(opTimeout)
	started := false
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for range ticker.C {
		if time.Now().After(deadline) {
			if !mgr.IsAvailable() {
				return ErrAdapterUnavailable
			}
			if !started {
				return fmt.Errorf("%w: %s", ErrDeviceNotFound, address)
			}
			return fmt.Errorf("%s %s: timed out", op, address)
		}

		mgr.ProcessCallbacks()

		if failMsg != "" {
			return fmt.Errorf("%s %s: %s", op, address, failMsg)
		}

		if !started {
			dev, found := findByAddress(snapshot, address)
			if !found {
				continue
			}
			if err := startOperation(tracker, op, dev); err != nil {
				return err
			}
			started = true
			continue
		}

		// Every operation ends back at Idle once the bus confirms it.
		if state, _ := tracker.State(); state == manager.StateIdle {
			fmt.Printf("%s %s: done\n", op, address)
			return nil
		}
	}
	return nil
}

func startOperation(tracker *manager.OperationTracker, op manager.Operation, dev manager.Device) error {
	switch op {
	case manager.OpPair:
		if dev.Paired {
			return fmt.Errorf("%s is already paired", dev.Address)
		}
		tracker.RequestPair(dev)
	case manager.OpConnect:
		if !dev.Paired {
			return fmt.Errorf("%s is not paired (pair it first)", dev.Address)
		}
		if dev.Connected {
			return fmt.Errorf("%s is already connected", dev.Address)
		}
		tracker.RequestConnect(dev)
	case manager.OpDisconnect:
		if !dev.Connected {
			return fmt.Errorf("%s is not connected", dev.Address)
		}
		tracker.RequestDisconnect(dev)
	case manager.OpForget:
		if !dev.Paired {
			return fmt.Errorf("%s is not paired", dev.Address)
		}
		tracker.RequestForget(dev)
		if !forgetYes && !confirm(fmt.Sprintf("Forget Bluetooth device %q?", dev.Name)) {
			tracker.CancelForget()
			return fmt.Errorf("forget %s: canceled", dev.Address)
		}
		tracker.ConfirmForget()
	}
	return nil
}

func findByAddress(devices []manager.Device, address string) (manager.Device, bool) {
	for _, d := range devices {
		if strings.EqualFold(d.Address, address) {
			return d, true
		}
	}
	return manager.Device{}, false
}

func confirm(prompt string) bool {
	fmt.Printf("%s [y/N]: ", prompt)
	line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
	line = strings.ToLower(strings.TrimSpace(line))
	return line == "y" || line == "yes"
}
