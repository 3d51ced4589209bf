package main

import (
	"bytes"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	aesctr "github.com/i5heu/ouroboros-aesctr"
	"github.com/i5heu/ouroboros-aesctr/internal/journal"
	"github.com/i5heu/ouroboros-aesctr/pkg/config"
	"github.com/sirupsen/logrus"
	"golang.org/x/term"
)

const (
	USAGE = `Usage:
  %s [-w workers] [-journal dir] [-v] <file> <nonce> <key>
  %s -ls -journal dir

  * nonce is a  64-bit hexadecimal value (16 characters)
  * key   is a 128-bit hexadecimal value (32 characters), or - to read it
          from the terminal without echo

The file is encrypted or decrypted in place; running the same nonce and key
over it again restores the original content.

Exit status: 0 on success, 1 on bad usage, 2 when the file cannot be opened,
3 and 4 for a nonce of wrong length or with a non-hex digit, 5 and 6 likewise
for the key, 127 when the cryption failed.

Options:
`
	exitUsage       = 1
	exitOpen        = 2
	exitNonceLength = 3
	exitNonce       = 4
	exitKeyLength   = 5
	exitKey         = 6
	exitFailed      = 127
)

var (
	errHexLength = errors.New("wrong length")
	errHexDigit  = errors.New("invalid hexadecimal digit")
)

type options struct {
	workers int
	journal string
	verbose bool
	list    bool
	args    []string
}

func main() {
	os.Exit(run(os.Args, os.Stdin, os.Stdout, os.Stderr))
}

func run(argv []string, stdin *os.File, stdout, stderr io.Writer) int {
	progName := filepath.Base(argv[0])
	opts, fs, err := parseArgs(progName, argv[1:], stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			usage(fs, progName, stderr)
			return 0
		}
		fmt.Fprintf(stderr, "error: %v\n", err)
		usage(fs, progName, stderr)
		return exitUsage
	}

	logger := logrus.New()
	logger.SetOutput(stderr)
	logger.SetLevel(logrus.WarnLevel)
	if opts.verbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	if opts.list {
		if err := listJournal(opts.journal, logger, stdout); err != nil {
			fmt.Fprintf(stderr, "error: %v\n", err)
			return exitFailed
		}
		return 0
	}

	path, nonceArg, keyArg := opts.args[0], opts.args[1], opts.args[2]
	if err := checkFile(path); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitOpen
	}

	nonce, err := decodeHex("nonce", []byte(nonceArg), aesctr.NonceSize)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		usage(fs, progName, stderr)
		return hexExit(err, exitNonceLength, exitNonce)
	}
	defer zero(nonce)

	var key []byte
	if keyArg == "-" {
		key, err = promptKey(stdin, stderr)
	} else {
		key, err = decodeHex("key", []byte(keyArg), aesctr.KeySize)
	}
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		usage(fs, progName, stderr)
		return hexExit(err, exitKeyLength, exitKey)
	}
	defer zero(key)

	c, err := aesctr.New(key, nonce, &config.Config{
		Workers:     opts.workers,
		JournalPath: opts.journal,
		Logger:      logger,
	})
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitUsage
	}
	defer c.Close()

	stop := func() {}
	if opts.verbose {
		stop = c.StartThroughputReporter(time.Second)
	}
	res, err := c.CryptFile(path)
	stop()
	if err != nil {
		if !errors.Is(err, aesctr.ErrCryptionFailed) {
			fmt.Fprintf(stderr, "error: %v\n", err)
			return exitOpen
		}
		fmt.Fprintf(stderr, "error: Cryption failed: %v\n", err)
		return exitFailed
	}

	fmt.Fprintf(stderr, "success: Crypted %s in %s (%s/s)\n",
		humanize.IBytes(uint64(res.Processed)),
		res.Duration.Round(time.Microsecond),
		humanize.IBytes(uint64(res.Throughput())))
	return 0
}

func parseArgs(progName string, args []string, stderr io.Writer) (options, *flag.FlagSet, error) {
	var opts options
	fs := flag.NewFlagSet(progName, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.Usage = func() {}
	fs.IntVar(&opts.workers, "w", 0, "number of workers; 0 picks one per CPU up to 8, 1 runs serially")
	fs.StringVar(&opts.journal, "journal", "", "directory of the run journal")
	fs.BoolVar(&opts.verbose, "v", false, "verbose logging")
	fs.BoolVar(&opts.list, "ls", false, "list runs recorded in the journal")

	if err := fs.Parse(args); err != nil {
		return opts, fs, err
	}
	opts.args = fs.Args()

	switch {
	case opts.list && opts.journal == "":
		return opts, fs, errors.New("-ls requires -journal")
	case opts.list && len(opts.args) != 0:
		return opts, fs, errors.New("-ls does not take any arguments")
	case !opts.list && len(opts.args) != 3:
		return opts, fs, fmt.Errorf("expected <file> <nonce> <key>, got %d arguments", len(opts.args))
	case opts.workers < 0:
		return opts, fs, fmt.Errorf("worker count must not be negative, got %d", opts.workers)
	}
	return opts, fs, nil
}

func usage(fs *flag.FlagSet, progName string, w io.Writer) {
	fmt.Fprintf(w, USAGE, progName, progName)
	fs.SetOutput(w)
	fs.PrintDefaults()
	fs.SetOutput(io.Discard)
}

// checkFile fails when path cannot be opened for reading and writing.
func checkFile(path string) error {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	return f.Close()
}

// decodeHex decodes s, which must hold exactly size bytes, into a fresh
// buffer.
func decodeHex(name string, s []byte, size int) ([]byte, error) {
	if len(s) != 2*size {
		return nil, fmt.Errorf("%s must be %d hexadecimal characters: %w", name, 2*size, errHexLength)
	}
	b := make([]byte, size)
	if _, err := hex.Decode(b, s); err != nil {
		zero(b)
		return nil, fmt.Errorf("%s: %w: %w", name, errHexDigit, err)
	}
	return b, nil
}

// hexExit maps a decodeHex failure to its exit code.
func hexExit(err error, lengthCode, digitCode int) int {
	switch {
	case errors.Is(err, errHexLength):
		return lengthCode
	case errors.Is(err, errHexDigit):
		return digitCode
	}
	return exitUsage
}

// promptKey reads the hexadecimal key from the terminal without echo. The
// typed characters never leave raw, which is zeroed before returning.
func promptKey(stdin *os.File, stderr io.Writer) ([]byte, error) {
	fd := int(stdin.Fd())
	if !term.IsTerminal(fd) {
		return nil, errors.New("key - requires an interactive terminal")
	}
	fmt.Fprint(stderr, "key: ")
	raw, err := term.ReadPassword(fd)
	fmt.Fprintln(stderr)
	defer zero(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to read key: %w", err)
	}
	return decodeHex("key", bytes.TrimSpace(raw), aesctr.KeySize)
}

func listJournal(dir string, logger *logrus.Logger, stdout io.Writer) error {
	j, err := journal.Open(dir, logger)
	if err != nil {
		return err
	}
	defer j.Close()

	entries, err := j.List()
	if err != nil {
		return fmt.Errorf("failed to list journal: %w", err)
	}
	if len(entries) == 0 {
		fmt.Fprintln(stdout, "No runs recorded.")
		return nil
	}

	tw := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "STARTED\tSTATUS\tSIZE\tWORKERS\tDURATION\tKEY\tNONCE\tPATH")
	for _, e := range entries {
		status := "ok"
		if !e.Success {
			status = fmt.Sprintf("failed (%s)", humanize.IBytes(uint64(e.Processed)))
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\t%s\t%s\n",
			e.Started.Local().Format(time.RFC3339),
			status,
			humanize.IBytes(uint64(e.Size)),
			e.Workers,
			e.Duration.Round(time.Millisecond),
			shorten(e.KeyFingerprint),
			e.Nonce,
			e.Path,
		)
	}
	return tw.Flush()
}

func shorten(s string) string {
	if len(s) <= 12 {
		return s
	}
	return s[:12]
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
