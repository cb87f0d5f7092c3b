package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/OpenTraceLab/OpenTracePCI/pkg/engine"
	"github.com/OpenTraceLab/OpenTracePCI/pkg/pci"
	"github.com/OpenTraceLab/OpenTracePCI/pkg/specparse"
	"github.com/spf13/cobra"
)

const version = "0.1.0"

var (
	// Global flags, reset on every run so tests can invoke the command
	// repeatedly.
	verbose      int
	force        bool
	dryRun       bool
	accessMethod string
)

// Device selectors (-s, -d) are interleaved with positional register specs,
// so the root command scans its own options instead of letting pflag eat
// the selector tokens. Subcommands parse flags normally.
var rootCmd = &cobra.Command{
	Use:   "otpci [options] (<filter>+ <register>[=<values>]*)+",
	Short: "Read and write PCI configuration registers",
	Long: `Read and write registers in PCI configuration space, by name or by
raw address, on every device matched by a filter.

Options:
  -v            be verbose (repeatable)
  -f            don't complain when a filter matches no devices
  -D            dry run: validate and read, but never write
  -A <method>   access method: sysfs (default), sim
  --version     print the version and exit

Filters:
  -s [[[<domain>]:][<bus>]:][<slot>][.[<func>]]   by location
  -d [<vendor>]:[<device>]                        by id

Register specs:
  <base>[+<offset>][.(B|W|L)][=<value>[:<mask>],...]
  <base> is a hex address, a register name, or CAP<id>/ECAP<id>.
  All numbers are hex. A value without mask is written unconditionally;
  with a mask, only the mask bits are changed (read-modify-write).

Examples:
  otpci -s 00:19.0 VENDOR_ID
  otpci -d 8086: COMMAND=0007
  otpci -v -s 02: CAP_EXP+8.W=0040:0070
  otpci -D -s 00:1f.3 40.L=12345678 LATENCY_TIMER=40`,
	// The root has subcommands, so without this cobra would reject the
	// positional filter/register tokens as unknown commands.
	Args:               cobra.ArbitraryArgs,
	DisableFlagParsing: true,
	SilenceUsage:       true,
	SilenceErrors:      true,
	RunE:               runRoot,
}

// Execute runs the root command and exits nonzero on any failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "otpci: %v\n", err)
		os.Exit(1)
	}
}

func runRoot(cmd *cobra.Command, args []string) error {
	verbose = 0
	force = false
	dryRun = false
	accessMethod = ""

	rest, done, err := scanOptions(cmd, args)
	if err != nil || done {
		return err
	}
	if len(rest) == 0 {
		return errors.New("no operation specified")
	}
	return runOps(cmd, rest)
}

// scanOptions consumes leading option tokens and returns the remainder (the
// filter/register groups). Short options may be bundled (-vfD). done is
// true when the invocation was fully handled (help, version).
func scanOptions(cmd *cobra.Command, args []string) (rest []string, done bool, err error) {
	i := 0
	for i < len(args) {
		a := args[i]
		if !strings.HasPrefix(a, "-") {
			break
		}
		if strings.HasPrefix(a, "-s") || strings.HasPrefix(a, "-d") {
			break // start of the first filter group
		}
		switch a {
		case "-h", "--help":
			return nil, true, cmd.Help()
		case "--version":
			fmt.Fprintf(cmd.OutOrStdout(), "otpci version %s\n", version)
			return nil, true, nil
		}
		i++
		if arg, ok := strings.CutPrefix(a, "-A"); ok {
			arg = strings.TrimPrefix(arg, "=")
			if arg == "" {
				if i >= len(args) {
					return nil, false, errors.New("option -A requires an argument")
				}
				arg = args[i]
				i++
			}
			accessMethod = arg
			continue
		}
		for _, c := range a[1:] {
			switch c {
			case 'v':
				verbose++
			case 'f':
				force = true
			case 'D':
				dryRun = true
			default:
				return nil, false, fmt.Errorf("unknown option -%c", c)
			}
		}
	}
	return args[i:], false, nil
}

func openAccess(method string) (pci.Access, error) {
	switch method {
	case "", "sysfs":
		return pci.NewSysfsAccess(), nil
	case "sim":
		return pci.NewDemoSim(), nil
	}
	return nil, fmt.Errorf("unknown access method %q", method)
}

// runOps walks the (<filter>+ <register>*)+ groups, building the operation
// list, then executes it. Consecutive selector tokens refine one filter; a
// register token freezes the current filter into a device batch that every
// following register token shares until the next selector.
func runOps(cmd *cobra.Command, args []string) error {
	const (
		stateInit = iota
		stateFilter
		stateOp
	)

	acc, err := openAccess(accessMethod)
	if err != nil {
		return err
	}
	defer acc.Close()

	devs, err := acc.Scan()
	if err != nil {
		return err
	}

	prog := engine.NewProgram()
	state := stateInit
	batch := -1
	var filter pci.Filter

	i := 0
	for i < len(args) {
		a := args[i]
		i++
		if strings.HasPrefix(a, "-") {
			if state != stateFilter {
				filter = pci.NewFilter()
			}
			if len(a) < 2 || (a[1] != 's' && a[1] != 'd') {
				return fmt.Errorf("unknown device selector %q", a)
			}
			pattern := strings.TrimPrefix(a[2:], "=")
			if pattern == "" {
				if i >= len(args) {
					return fmt.Errorf("selector %s requires a pattern", a[:2])
				}
				pattern = args[i]
				i++
			}
			if a[1] == 's' {
				err = filter.ParseSlot(pattern)
			} else {
				err = filter.ParseID(pattern)
			}
			if err != nil {
				return fmt.Errorf("-%c: %w", a[1], err)
			}
			state = stateFilter
		} else {
			if state == stateInit {
				return fmt.Errorf("register spec %q before any device selector", a)
			}
			if state == stateFilter {
				batch = prog.AddSelection(engine.Select(devs, &filter))
			}
			if len(prog.Selection(batch)) == 0 && !force {
				fmt.Fprintf(cmd.ErrOrStderr(), "otpci: warning: no devices selected for %q\n", a)
			}
			op, err := specparse.Parse(a)
			if err != nil {
				return err
			}
			prog.Add(batch, op)
			state = stateOp
		}
	}
	if prog.NeedsWrite() {
		acc.AllowWrite()
	}
	return engine.Execute(acc, prog, engine.Options{
		Verbose: verbose,
		DryRun:  dryRun,
		Out:     cmd.OutOrStdout(),
	})
}
