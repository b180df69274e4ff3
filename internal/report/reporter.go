package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"infobars/internal/bars"
	"infobars/internal/pipeline"

	"github.com/rs/zerolog/log"
)

const timeLayout = "2006-01-02 15:04:05.000"

// Reporter writes the output files of a pipeline run.
type Reporter struct {
	out        *pipeline.Output
	outputPath string
}

// NewReporter creates a reporter writing under outputPath.
func NewReporter(out *pipeline.Output, outputPath string) *Reporter {
	return &Reporter{
		out:        out,
		outputPath: outputPath,
	}
}

// GenerateReport writes, per bar type, the bars, per-bar diagnostics,
// per-tick threshold trace and a JSON report, then one summary for the run.
func (r *Reporter) GenerateReport() error {
	if err := os.MkdirAll(r.outputPath, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	for _, set := range r.out.Sets {
		if err := r.generateBars(set); err != nil {
			return err
		}
		if err := r.generateDiagnostics(set); err != nil {
			return err
		}
		if err := r.generateThresholds(set); err != nil {
			return err
		}
		if err := r.generateJSONReport(set); err != nil {
			return err
		}
	}

	return r.generateSummary()
}

func (r *Reporter) path(prefix string, bt bars.BarType, ext string) string {
	return filepath.Join(r.outputPath, fmt.Sprintf("%s_%s.%s", prefix, bt, ext))
}

// writeCSV creates path and streams header plus rows into it.
func writeCSV(path string, header []string, rows func(w *csv.Writer) error) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Base(path), err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(header); err != nil {
		return err
	}
	if err := rows(writer); err != nil {
		return err
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	return file.Close()
}

func ff(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// generateBars writes one OHLCV row per bar.
func (r *Reporter) generateBars(set pipeline.BarSet) error {
	csvPath := r.path("bars", set.BarType, "csv")

	header := []string{
		"id", "timestamp", "end_time", "open", "high", "low", "close",
		"volume", "dollar_volume", "vwap", "price_std", "ticks", "tick_imbalance", "partial",
	}
	err := writeCSV(csvPath, header, func(w *csv.Writer) error {
		for _, b := range set.Bars {
			record := []string{
				strconv.Itoa(b.ID),
				b.Timestamp.Format(timeLayout),
				b.EndTime.Format(timeLayout),
				ff(b.Open),
				ff(b.High),
				ff(b.Low),
				ff(b.Close),
				ff(b.Volume),
				ff(b.DollarVolume),
				ff(b.VWAP),
				ff(b.PriceStd),
				strconv.Itoa(b.Ticks),
				ff(b.TickImbalance),
				strconv.FormatBool(b.Partial),
			}
			if err := w.Write(record); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	log.Info().Str("file", csvPath).Int("bars", len(set.Bars)).Msg("Bars written")
	return nil
}

// generateDiagnostics writes the per-bar engine sequences: bar length,
// absolute theta, threshold at close, first tick timestamp and signed theta.
func (r *Reporter) generateDiagnostics(set pipeline.BarSet) error {
	csvPath := r.path("diagnostics", set.BarType, "csv")
	res := set.Result

	header := []string{
		"bar_id", "start_index", "end_index", "timestamp",
		"ticks_in_bar", "theta_absolute", "threshold", "theta_signed", "partial",
	}
	err := writeCSV(csvPath, header, func(w *csv.Writer) error {
		for i, b := range res.Boundaries {
			record := []string{
				strconv.Itoa(i),
				strconv.Itoa(b.StartIndex),
				strconv.Itoa(b.EndIndex),
				b.StartTime.Format(timeLayout),
				strconv.Itoa(b.TicksInBar),
				ff(b.ThetaAbsolute),
				ff(b.ThresholdAtClose),
				ff(b.ThetaSigned),
				strconv.FormatBool(b.Partial),
			}
			if err := w.Write(record); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	log.Info().Str("file", csvPath).Msg("Diagnostics written")
	return nil
}

// generateThresholds writes the per-tick threshold trace with the group id
// assigned to each tick.
func (r *Reporter) generateThresholds(set pipeline.BarSet) error {
	csvPath := r.path("thresholds", set.BarType, "csv")
	res := set.Result

	err := writeCSV(csvPath, []string{"tick", "group_id", "threshold"}, func(w *csv.Writer) error {
		for i, th := range res.ThresholdTrace {
			if err := w.Write([]string{strconv.Itoa(i), strconv.Itoa(res.GroupIDs[i]), ff(th)}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	log.Info().Str("file", csvPath).Msg("Threshold trace written")
	return nil
}

// BarTypeReport is the JSON document written per bar type.
type BarTypeReport struct {
	RunID                string                    `json:"run_id"`
	Symbol               string                    `json:"symbol"`
	BarType              bars.BarType              `json:"bar_type"`
	GeneratedAt          time.Time                 `json:"generated_at"`
	Options              bars.Options              `json:"options"`
	InitialExpectedTicks int                       `json:"initial_expected_ticks"`
	Trades               int                       `json:"trades"`
	Stats                Stats                     `json:"stats"`
	Final                bars.EstimatorState       `json:"final_estimate"`
	Degenerate           []bars.DegenerateEstimate `json:"degenerate_estimates"`
	BarLengths           []int                     `json:"bar_lengths"`
	Thresholds           []float64                 `json:"thresholds"`
	Timestamps           []time.Time               `json:"timestamps"`
	ScanMillis           float64                   `json:"scan_ms"`
}

func (r *Reporter) generateJSONReport(set pipeline.BarSet) error {
	jsonPath := r.path("report", set.BarType, "json")
	res := set.Result

	rep := BarTypeReport{
		RunID:                r.out.RunID,
		Symbol:               r.out.Symbol,
		BarType:              set.BarType,
		GeneratedAt:          time.Now().UTC(),
		Options:              r.out.Config.Options,
		InitialExpectedTicks: r.out.Config.InitialExpectedTicks,
		Trades:               r.out.Trades,
		Stats:                ComputeStats(res),
		Final:                res.Final,
		Degenerate:           res.Degenerate,
		BarLengths:           res.BarLengths(),
		Thresholds:           res.Thresholds(),
		Timestamps:           res.BoundaryTimestamps(),
		ScanMillis:           float64(set.Duration.Microseconds()) / 1000,
	}

	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if err := os.WriteFile(jsonPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write JSON report: %w", err)
	}

	log.Info().Str("file", jsonPath).Msg("JSON report generated")
	return nil
}

// generateSummary writes summary.txt covering every bar type.
func (r *Reporter) generateSummary() error {
	summaryPath := filepath.Join(r.outputPath, "summary.txt")
	file, err := os.Create(summaryPath)
	if err != nil {
		return fmt.Errorf("failed to create summary file: %w", err)
	}
	defer file.Close()

	r.writeSummary(file)

	log.Info().Str("file", summaryPath).Msg("Summary report generated")
	return file.Close()
}

func (r *Reporter) writeSummary(w io.Writer) {
	o := r.out
	fmt.Fprintf(w, "INFORMATION-DRIVEN BARS SUMMARY\n")
	fmt.Fprintf(w, "===============================\n\n")

	fmt.Fprintf(w, "Run ID: %s\n", o.RunID)
	fmt.Fprintf(w, "Symbol: %s\n", o.Symbol)
	fmt.Fprintf(w, "Time Period: %s to %s\n",
		o.StartTime.Format("2006-01-02 15:04:05"),
		o.EndTime.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "Trades: %d\n", o.Trades)
	fmt.Fprintf(w, "Initial Expected Ticks: %d\n", o.Config.InitialExpectedTicks)
	fmt.Fprintf(w, "Smoothing Factor: %.3f\n", o.Config.Options.SmoothingFactor)
	fmt.Fprintf(w, "Imbalance Mode: %s\n", o.Config.Options.ImbalanceMode)
	fmt.Fprintf(w, "Seed Mode: %s\n\n", o.Config.Options.SeedMode)

	for _, set := range o.Sets {
		s := ComputeStats(set.Result)
		fmt.Fprintf(w, "%s BARS\n", strings.ToUpper(string(set.BarType)))
		fmt.Fprintf(w, "---------\n")
		fmt.Fprintf(w, "Bars: %d (%d completed, partial: %t)\n", s.Bars, s.Completed, s.Partial)
		fmt.Fprintf(w, "Ticks per bar: mean %.2f, min %d, max %d\n", s.MeanLength, s.MinLength, s.MaxLength)
		fmt.Fprintf(w, "Threshold: first %.6g, last %.6g\n", s.FirstThreshold, s.LastThreshold)
		fmt.Fprintf(w, "Final expected ticks: %.2f\n", set.Result.Final.ExpectedTicks)
		fmt.Fprintf(w, "Final expected imbalance: %.6g\n", set.Result.Final.ExpectedImbalance)
		fmt.Fprintf(w, "Degenerate estimates: %d\n", s.Degenerate)
		fmt.Fprintf(w, "Scan time: %s\n\n", set.Duration)
	}
}

// PrintSummary prints a short summary to the console.
func (r *Reporter) PrintSummary() {
	fmt.Println("\n=== INFORMATION-DRIVEN BARS ===")
	fmt.Printf("Run: %s  Symbol: %s  Trades: %d\n", r.out.RunID, r.out.Symbol, r.out.Trades)
	for _, set := range r.out.Sets {
		s := ComputeStats(set.Result)
		fmt.Printf("%-7s bars: %5d  mean ticks/bar: %8.2f  degenerate: %d\n",
			set.BarType, s.Bars, s.MeanLength, s.Degenerate)
	}
	fmt.Println("===============================")
}
