package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"go-dataset-workflow/internal/config"
	"go-dataset-workflow/internal/model"
	"go-dataset-workflow/internal/pipeline"
)

var (
	flagFile      = flag.String("file", "", "CSV or JSON file, local path or http(s) URL")
	flagFormat    = flag.String("format", "", "Input format: csv|json (default from extension)")
	flagVars      = flag.String("vars", "", "Comma-separated model variables to map onto dataset fields")
	flagFields    = flag.String("fields", "", "Comma-separated fields to keep (default: mapped fields)")
	flagStart     = flag.Int("start", 0, "First year to keep (0 = unbounded)")
	flagEnd       = flag.Int("end", 0, "Last year to keep (0 = unbounded)")
	flagYearField = flag.String("year-field", "", "Year column (default: APP_YEAR_FIELD, else a field named year)")
	flagMissing   = flag.String("missing", "none", "Missing values: drop|mean|median|zero|none")
	flagOutliers  = flag.String("outliers", "none", "Outliers: clip|remove|none")
	flagNormalize = flag.String("normalize", "none", "Normalization: zscore|minmax|none")
	flagDedup     = flag.Bool("dedup", false, "Remove duplicate records")
	flagConvert   = flag.Bool("convert", false, "Convert numeric-looking strings to numbers")
	flagPage      = flag.Int("page", 1, "Preview page to print")
	flagPageSize  = flag.Int("page-size", 0, "Preview page size (default: APP_PAGE_SIZE)")
	flagCSV       = flag.Bool("csv", false, "Write the cleaned dataset as CSV to stdout instead of the preview")
)

type output struct {
	Mapping model.FieldMapping    `json:"mapping,omitempty"`
	Schema  []string              `json:"schema"`
	Page    model.PageState       `json:"page"`
	Records json.RawMessage       `json:"records"`
	Report  *model.CleaningReport `json:"report"`
}

func main() {
	flag.Parse()
	cfg := config.FromEnv()
	log := cfg.NewLogger(os.Stderr)

	if *flagFile == "" {
		fmt.Fprintln(os.Stderr, "usage: workflow -file data.csv [-vars a,b] [-fields x,y] [-start 2000 -end 2010]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Error("workflow failed", "kind", pipeline.KindOf(err), "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config) error {
	yearField := cfg.YearField
	if *flagYearField != "" {
		yearField = *flagYearField
	}
	pageSize := cfg.PageSize
	if *flagPageSize > 0 {
		pageSize = *flagPageSize
	}

	log := cfg.NewLogger(os.Stderr)
	ctrl, err := pipeline.NewController("cli", pipeline.Options{
		PageSize: pageSize,
		Filterer: pipeline.FilterStage{YearField: yearField},
		Listener: pipeline.ListenerFuncs{
			BufferChanged: func(ev pipeline.BufferEvent) {
				log.Info("stage done", "stage", ev.Stage, "rows_in", ev.RowsIn, "rows_out", ev.Dataset.Len())
			},
		},
	})
	if err != nil {
		return err
	}
	defer ctrl.Close()

	if err := ctrl.Load(ctx, pipeline.FileSource{Path: *flagFile, Format: *flagFormat}); err != nil {
		return err
	}

	var mapping model.FieldMapping
	if vars := splitList(*flagVars); len(vars) > 0 {
		if mapping, err = ctrl.SuggestMapping(vars); err != nil {
			return err
		}
		if err := ctrl.MapFields(mapping); err != nil {
			return err
		}
	}

	spec := model.FilterSpec{Fields: splitList(*flagFields)}
	if len(spec.Fields) == 0 && len(mapping.SelectedFields(ctrl.Raw().Schema)) == 0 {
		spec.Fields = ctrl.Raw().Schema
	}
	if *flagStart != 0 {
		spec.StartYear = model.Year(*flagStart)
	}
	if *flagEnd != 0 {
		spec.EndYear = model.Year(*flagEnd)
	}
	if err := ctrl.Filter(ctx, spec); err != nil {
		return err
	}

	report, err := ctrl.Clean(ctx, model.CleaningOptions{
		MissingValueTreatment: model.MissingValueTreatment(*flagMissing),
		OutlierTreatment:      model.OutlierTreatment(*flagOutliers),
		NormalizationMethod:   model.NormalizationMethod(*flagNormalize),
		RemoveDuplicates:      *flagDedup,
		ConvertDataTypes:      *flagConvert,
	})
	if err != nil {
		return err
	}

	if *flagCSV {
		return pipeline.WriteCSV(os.Stdout, ctrl.Current())
	}

	page, err := ctrl.Page(*flagPage)
	if err != nil {
		return err
	}
	rows := model.Dataset{Schema: page.Schema, Records: page.Records}
	raw, err := rows.MarshalRows()
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(output{
		Mapping: ctrl.Mapping(),
		Schema:  page.Schema,
		Page:    page.Page,
		Records: raw,
		Report:  report,
	})
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
