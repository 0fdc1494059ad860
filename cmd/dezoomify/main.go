// Command dezoomify reconstructs a single large image, or a batch of
// them, from a zoomable-image viewer's tiles.
package main

import (
	"context"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	dezoomify "github.com/dezoomify/dezoomify-go"
	"github.com/dezoomify/dezoomify-go/bulk"
	"github.com/dezoomify/dezoomify-go/dezoomers/customyaml"
	"github.com/dezoomify/dezoomify-go/dezoomers/deepzoom"
	"github.com/dezoomify/dezoomify-go/dezoomers/gap"
	"github.com/dezoomify/dezoomify-go/dezoomers/generic"
	"github.com/dezoomify/dezoomify-go/dezoomers/iiif"
	"github.com/dezoomify/dezoomify-go/dezoomers/iipimage"
	"github.com/dezoomify/dezoomify-go/dezoomers/krpano"
	"github.com/dezoomify/dezoomify-go/dezoomers/nypl"
	"github.com/dezoomify/dezoomify-go/dezoomers/pff"
	"github.com/dezoomify/dezoomify-go/dezoomers/zoomify"
)

func buildRegistry() *dezoomify.Registry {
	reg := dezoomify.NewRegistry()
	reg.Register(zoomify.Dezoomer{})
	reg.Register(deepzoom.Dezoomer{})
	reg.Register(iiif.Dezoomer{})
	reg.Register(customyaml.Dezoomer{})
	reg.Register(gap.Dezoomer{})
	reg.Register(krpano.Dezoomer{})
	reg.Register(nypl.Dezoomer{})
	reg.Register(pff.Dezoomer{})
	reg.Register(iipimage.Dezoomer{})
	reg.Register(generic.Dezoomer{}) // registered last: lowest auto-dispatch priority
	return reg
}

var headerFlags []string

func buildConfig() dezoomify.Config {
	cfg := dezoomify.DefaultConfig()
	cfg.Dezoomer = viper.GetString("dezoomer")
	cfg.Largest = viper.GetBool("largest")
	cfg.Parallelism = viper.GetInt64("parallelism")
	cfg.Retries = uint(viper.GetInt("retries"))
	cfg.RetryDelay = viper.GetDuration("retry-delay")
	cfg.Compression = viper.GetInt("compression")
	cfg.MaxIdlePerHost = viper.GetInt("max-idle-per-host")
	cfg.AcceptInvalidCerts = viper.GetBool("accept-invalid-certs")
	cfg.MinInterval = viper.GetDuration("min-interval")
	cfg.Timeout = viper.GetDuration("timeout")
	cfg.ConnectTimeout = viper.GetDuration("connect-timeout")
	cfg.Logging = viper.GetString("logging")
	cfg.TileCacheDir = viper.GetString("tile-cache")
	cfg.Outfile = viper.GetString("outfile")

	if zl := viper.GetInt("zoom-level"); viper.IsSet("zoom-level") {
		cfg.ZoomLevel = &zl
	}
	if idx := viper.GetInt("image-index"); viper.IsSet("image-index") {
		cfg.ImageIndex = &idx
	}
	if w := viper.GetUint32("max-width"); viper.IsSet("max-width") {
		cfg.MaxWidth = &w
	}
	if h := viper.GetUint32("max-height"); viper.IsSet("max-height") {
		cfg.MaxHeight = &h
	}

	for _, h := range headerFlags {
		for i := 0; i < len(h); i++ {
			if h[i] == ':' {
				cfg.Headers = append(cfg.Headers, [2]string{h[:i], h[i+1:]})
				break
			}
		}
	}
	return cfg
}

func configureLogging(level string) {
	zerolog.TimeFieldFormat = time.RFC3339
	l, err := zerolog.ParseLevel(level)
	if err != nil {
		l = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(l)
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dezoomify <url-or-path>",
		Short: "Reconstruct large images from zoomable-image viewer tiles",
		Args:  cobra.ExactArgs(1),
		RunE:  run,
	}

	flags := cmd.Flags()
	flags.String("dezoomer", "auto", "dezoomer to use, or \"auto\" to try every known one")
	flags.Bool("largest", true, "pick the largest available zoom level/image")
	flags.Int("zoom-level", 0, "pin a specific zoom level index")
	flags.Int("image-index", 0, "pin a specific image index (when several are found)")
	flags.Uint32("max-width", 0, "largest width to consider when picking a level")
	flags.Uint32("max-height", 0, "largest height to consider when picking a level")
	flags.Int64("parallelism", 16, "maximum concurrent tile downloads")
	flags.Int("retries", 1, "tile download retry count")
	flags.Duration("retry-delay", 2*time.Second, "base delay between tile download retries")
	flags.Int("compression", 5, "output compression/quality, 0-100")
	flags.StringArrayVarP(&headerFlags, "header", "H", nil, "extra HTTP header, \"Name:value\" (repeatable)")
	flags.Int("max-idle-per-host", 32, "max idle HTTP connections kept open per host")
	flags.Bool("accept-invalid-certs", false, "skip TLS certificate verification")
	flags.Duration("min-interval", 50*time.Millisecond, "minimum delay between tile requests")
	flags.Duration("timeout", 30*time.Second, "per-request HTTP timeout")
	flags.Duration("connect-timeout", 6*time.Second, "per-request TCP connect timeout")
	flags.String("logging", "info", "log level: trace, debug, info, warn, error")
	flags.String("tile-cache", "", "directory to cache downloaded tile bytes in")
	flags.Bool("bulk", false, "treat the input as a bulk list/manifest instead of a single image")
	flags.String("outfile", "", "explicit output path; in bulk mode, an explicit numbered base (e.g. out.jpg -> out_1.jpg, out_2.jpg)")
	flags.String("outdir", ".", "output directory (bulk mode only)")
	flags.String("name-template", "", "output file name template, e.g. \"{index}_{label}\" (bulk mode only)")

	_ = viper.BindPFlags(flags)
	return cmd
}

func run(cmd *cobra.Command, args []string) error {
	cfg := buildConfig()
	configureLogging(cfg.Logging)

	ctx := context.Background()
	reg := buildRegistry()
	reporter := dezoomify.NewBarReporter(os.Stderr)

	input := args[0]

	if viper.GetBool("bulk") {
		data, err := dezoomify.FetchURI(ctx, input, dezoomify.NewHTTPClient(cfg.ClientConfig()))
		if err != nil {
			return err
		}
		items, err := bulk.Parse(data)
		if err != nil {
			return err
		}
		stats := bulk.Process(ctx, items, cfg, reg, reporter, viper.GetString("outdir"), viper.GetString("name-template"), viper.GetString("outfile"))
		log.Info().
			Int("total", stats.TotalImages).
			Int("successful", stats.SuccessfulImages).
			Int("partial", stats.PartialDownloads).
			Int("failed", stats.FailedImages).
			Msg("bulk run complete")
		if !stats.AllSucceeded() {
			return errors.Errorf("bulk run finished with %d failed and %d partial image(s)", stats.FailedImages, stats.PartialDownloads)
		}
		return nil
	}

	result, err := dezoomify.Dezoomify(ctx, input, cfg, reg, reporter)
	if err != nil {
		if partial, ok := dezoomify.IsPartialDownload(err); ok {
			log.Warn().Msg(partial.Error())
			return err
		}
		return err
	}
	log.Info().Str("destination", result.Destination).Msg("done")
	return nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Error().Err(err).Msg("dezoomify failed")
		os.Exit(1)
	}
}
