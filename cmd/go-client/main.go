// Command go-client drives a running tts-gateway over its HTTP API.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/book-expert/logger"
	"github.com/book-expert/tts-gateway/internal/apiclient"
	"github.com/book-expert/tts-gateway/internal/core"
	"github.com/book-expert/tts-gateway/internal/server"
	"github.com/book-expert/tts-gateway/internal/tts/ttsutils"
	"github.com/spf13/cobra"
)

// Flag names.
const (
	flagServer   = "server"
	flagTimeout  = "timeout"
	flagLogDir   = "log-dir"
	flagText     = "text"
	flagFile     = "file"
	flagVoice    = "voice"
	flagLanguage = "language"
	flagOutput   = "output"
)

// Flag descriptions.
const (
	flagServerDesc   = "Base URL of the TTS gateway"
	flagTimeoutDesc  = "Request timeout"
	flagLogDirDesc   = "Directory for the client log file"
	flagTextDesc     = "Text to convert to speech"
	flagFileDesc     = "Read the text from a file"
	flagVoiceDesc    = "Voice id from 'voices', or auto"
	flagLanguageDesc = "Language: auto, en or hi"
	flagOutputDesc   = "Download the generated audio to this path"
)

// Defaults.
const (
	defaultServerURL = "http://localhost:5000"
	logFileName      = "tts-client.log"
)

// Error and log messages.
const (
	errFmtReadTextFile     = "failed to read text file %s: %w"
	errFmtCreateOutput     = "failed to create output file %s: %w"
	logFmtRequest          = "%s against %s"
	logFmtSynthesized      = "Synthesized %s (%s, %d/%d chunks)"
	logFmtDownloaded       = "Downloaded %s to %s"
	msgFmtHealth           = "%s: %s\noutputs: %s (%d files, %s)\n"
	msgFmtSynthesized      = "%s\nfile: %s (%s, ~%s)\nvoice: %s via %s\nchunks: %d/%d (%d%%)\n"
	msgFmtTestSynthesized  = "%s\nfile: %s (%s)\nvoice: %s via %s\n"
	msgFmtDownloaded       = "saved: %s\n"
	msgFmtVoice            = "  %-22s %-28s %s\n"
	msgFmtFile             = "  %-52s %10s  %s\n"
	msgFmtDeleted          = "deleted: %s\n"
	msgFmtVoiceGroupHeader = "%s:\n"
	msgNoFiles             = "no generated files"
)

var (
	errEitherTextOrFile  = errors.New("either --text or --file must be provided")
	errCannotSpecifyBoth = errors.New("cannot specify both --text and --file")
)

// app carries the state shared by every command.
type app struct {
	serverURL string
	timeout   time.Duration
	logDir    string
	client    *apiclient.Client
	log       *logger.Logger
}

func main() {
	err := newRootCommand().Execute()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	state := &app{}

	root := &cobra.Command{
		Use:          "go-client",
		Short:        "Command-line client for the TTS gateway",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return state.open(cmd)
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			state.close()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&state.serverURL, flagServer, envOrDefault("TTS_GATEWAY_URL", defaultServerURL), flagServerDesc)
	flags.DurationVar(&state.timeout, flagTimeout, apiclient.DefaultTimeout, flagTimeoutDesc)
	flags.StringVar(&state.logDir, flagLogDir, os.TempDir(), flagLogDirDesc)

	root.AddCommand(
		newSynthesizeCommand(state),
		newTestCommand(state),
		newVoicesCommand(state),
		newHealthCommand(state),
		newFilesCommand(state),
		newDeleteCommand(state),
	)

	return root
}

func (a *app) open(cmd *cobra.Command) error {
	log, err := logger.New(a.logDir, logFileName)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	a.log = log
	a.client = apiclient.New(a.serverURL, a.timeout)
	a.log.Info(logFmtRequest, cmd.Name(), a.serverURL)

	return nil
}

func (a *app) close() {
	if a.log != nil {
		_ = a.log.Close()
	}
}

type synthesizeOptions struct {
	text     string
	file     string
	voice    string
	language string
	output   string
}

func newSynthesizeCommand(state *app) *cobra.Command {
	opts := &synthesizeOptions{}

	cmd := &cobra.Command{
		Use:   "synthesize",
		Short: "Narrate text and optionally download the audio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return state.synthesize(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.text, flagText, "", flagTextDesc)
	cmd.Flags().StringVar(&opts.file, flagFile, "", flagFileDesc)
	cmd.Flags().StringVar(&opts.voice, flagVoice, "auto", flagVoiceDesc)
	cmd.Flags().StringVar(&opts.language, flagLanguage, "auto", flagLanguageDesc)
	cmd.Flags().StringVarP(&opts.output, flagOutput, "o", "", flagOutputDesc)

	return cmd
}

func (a *app) synthesize(ctx context.Context, out io.Writer, opts *synthesizeOptions) error {
	text, err := opts.readText()
	if err != nil {
		return err
	}

	result, err := a.client.Process(ctx, server.ProcessRequest{
		Text:     text,
		Voice:    opts.voice,
		Language: opts.language,
	})
	if err != nil {
		a.log.Error("Synthesis failed: %v", err)

		return err
	}

	a.log.Info(logFmtSynthesized, result.FileName, result.FileSizeHuman, result.ChunksProcessed, result.TotalChunks)

	fmt.Fprintf(out, msgFmtSynthesized,
		result.Message, result.FileName, result.FileSizeHuman, result.EstimatedDuration,
		result.VoiceInfo.Voice, result.VoiceInfo.Service,
		result.ChunksProcessed, result.TotalChunks, result.SuccessRate)

	if opts.output == "" {
		return nil
	}

	return a.download(ctx, out, result.DownloadURL, opts.output)
}

func (o *synthesizeOptions) readText() (string, error) {
	switch {
	case o.text != "" && o.file != "":
		return "", errCannotSpecifyBoth
	case o.text != "":
		return o.text, nil
	case o.file != "":
		data, err := os.ReadFile(o.file)
		if err != nil {
			return "", fmt.Errorf(errFmtReadTextFile, o.file, err)
		}

		return string(data), nil
	default:
		return "", errEitherTextOrFile
	}
}

func (a *app) download(ctx context.Context, out io.Writer, downloadURL, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf(errFmtCreateOutput, outputPath, err)
	}

	_, err = a.client.Download(ctx, downloadURL, file)

	closeErr := file.Close()
	if err == nil {
		err = closeErr
	}

	if err != nil {
		_ = os.Remove(outputPath)

		return err
	}

	a.log.Info(logFmtDownloaded, downloadURL, outputPath)
	fmt.Fprintf(out, msgFmtDownloaded, outputPath)

	return nil
}

func newTestCommand(state *app) *cobra.Command {
	opts := &synthesizeOptions{}

	cmd := &cobra.Command{
		Use:   "test",
		Short: "Synthesize a short sample sentence",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			result, err := state.client.Test(cmd.Context(), server.ProcessRequest{
				Text:     opts.text,
				Voice:    opts.voice,
				Language: opts.language,
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), msgFmtTestSynthesized,
				result.Message, result.FileName, ttsutils.FormatFileSize(result.FileSize),
				result.VoiceUsed, result.Service)

			if opts.output == "" {
				return nil
			}

			return state.download(cmd.Context(), cmd.OutOrStdout(), result.DownloadURL, opts.output)
		},
	}

	cmd.Flags().StringVar(&opts.text, flagText, "", flagTextDesc)
	cmd.Flags().StringVar(&opts.voice, flagVoice, "auto", flagVoiceDesc)
	cmd.Flags().StringVar(&opts.language, flagLanguage, "auto", flagLanguageDesc)
	cmd.Flags().StringVarP(&opts.output, flagOutput, "o", "", flagOutputDesc)

	return cmd
}

func newVoicesCommand(state *app) *cobra.Command {
	return &cobra.Command{
		Use:   "voices",
		Short: "List the available voices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			voices, err := state.client.Voices(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()

			printVoiceGroup(out, "english", voices.Voices.English)
			printVoiceGroup(out, "hindi", voices.Voices.Hindi)
			printVoiceGroup(out, "special", voices.Voices.Special)
			fmt.Fprintf(out, "total: %d\n", voices.TotalVoices)

			return nil
		},
	}
}

func newHealthCommand(state *app) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the gateway is up",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			health, err := state.client.Health(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), msgFmtHealth,
				health.Service, health.Status, health.Outputs.Directory,
				health.Outputs.FileCount, health.Outputs.TotalSizeHuman)

			return nil
		},
	}
}

func newFilesCommand(state *app) *cobra.Command {
	return &cobra.Command{
		Use:   "files",
		Short: "List generated audio files, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			files, err := state.client.Files(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()

			if len(files.Files) == 0 {
				fmt.Fprintln(out, msgNoFiles)

				return nil
			}

			for _, file := range files.Files {
				fmt.Fprintf(out, msgFmtFile, file.Name, ttsutils.FormatFileSize(file.Size), file.Created)
			}

			return nil
		},
	}
}

func newDeleteCommand(state *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>...",
		Short: "Delete generated audio files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range args {
				err := state.client.Delete(cmd.Context(), name)
				if err != nil {
					return fmt.Errorf("failed to delete %s: %w", name, err)
				}

				fmt.Fprintf(cmd.OutOrStdout(), msgFmtDeleted, name)
			}

			return nil
		},
	}
}

func printVoiceGroup(out io.Writer, title string, voices []core.VoiceDescriptor) {
	fmt.Fprintf(out, msgFmtVoiceGroupHeader, title)

	for _, descriptor := range voices {
		fmt.Fprintf(out, msgFmtVoice, descriptor.ID, descriptor.Name, descriptor.Provider)
	}
}

func envOrDefault(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}

	return fallback
}
