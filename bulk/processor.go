package bulk

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	dezoomify "github.com/dezoomify/dezoomify-go"
)

var parsers = []Parser{ManifestParser{}, SimpleTextParser{}}

// Parse tries every known bulk format against data, returning the first
// one that recognises it.
func Parse(data []byte) ([]Item, error) {
	for _, p := range parsers {
		if items, ok := p.Parse(data); ok {
			return items, nil
		}
	}
	return nil, errors.New("input did not match any known bulk format (URL list or IIIF manifest)")
}

// Process runs cfg's dezoomify pipeline once per item, continuing past
// per-item failures so one bad URL in a long list doesn't abort the rest,
// matching original_source/src/lib.rs::process_bulk's tolerance for
// partial runs. outDir is the directory output files are placed in;
// nameTemplate is an optional output-name template (see OutputName).
// explicitBase, when non-empty (the CLI's --outfile passed through in bulk
// mode), overrides each item's computed stem as a numbered base instead
// (see dezoomify.ResolveBulkOutputPath), so the extension is still chosen
// per item from its own size rather than being fixed up front.
func Process(ctx context.Context, items []Item, cfg dezoomify.Config, reg *dezoomify.Registry, reporter dezoomify.Reporter, outDir, nameTemplate, explicitBase string) Stats {
	var stats Stats
	for _, item := range items {
		itemCfg := cfg
		itemCfg.Outfile = explicitBase
		itemCfg.OutDir = outDir
		itemCfg.OutStem = OutputName(item, nameTemplate)

		log.Info().Str("url", item.DownloadURL).Msg("processing bulk item")
		result, err := dezoomify.Dezoomify(ctx, item.DownloadURL, itemCfg, reg, reporter)

		switch {
		case err == nil:
			stats.Observe(OutcomeSuccess)
		default:
			if _, partial := dezoomify.IsPartialDownload(err); partial {
				stats.Observe(OutcomePartial)
			} else {
				stats.Observe(OutcomeFailed)
				log.Error().Str("url", item.DownloadURL).Err(errors.Wrap(err, "bulk item failed")).Msg("bulk item failed")
			}
		}
		if result != nil {
			log.Info().Str("destination", result.Destination).Msg("bulk item written")
		}
	}
	return stats
}
