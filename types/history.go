package types

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/wnt/empyreal/internal/utils"
)

// SwapInterval is one OHLC bucket of a pair's swap feed
type SwapInterval struct {
	Start     time.Time
	Open      float64
	Close     float64
	Min       float64
	Max       float64
	MinBlock  uint64
	MaxBlock  uint64
	TxCount   int64
	PrevClose float64
}

// SwapHistory is the ordered feed of a pair
type SwapHistory struct {
	// Pair is not owned by the history
	Pair      *DexPair
	Intervals []SwapInterval
}

const feedColumns = 9

// noValue marks a missing previous close in the feed
const noValue = "None"

var feedTimeLayouts = []string{
	"2006-01-02 15:04:05-07:00",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// ParseSwapFeed decodes a gzip or plain CSV feed with the columns
// interval,open,close,min,max,min_block,max_block,num_tx,prev_close.
// A leading header row is dropped and intervals are returned by start time.
func ParseSwapFeed(raw []byte) ([]SwapInterval, error) {
	r, err := feedReader(raw)
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	intervals := []SwapInterval{}
	for line := 1; ; line++ {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read feed line %d: %w", line, err)
		}
		if len(row) == 1 && strings.TrimSpace(row[0]) == "" {
			continue
		}
		if line == 1 && isFeedHeader(row) {
			continue
		}
		interval, err := parseInterval(row)
		if err != nil {
			return nil, fmt.Errorf("feed line %d: %w", line, err)
		}
		intervals = append(intervals, interval)
	}

	sort.SliceStable(intervals, func(i, j int) bool {
		return intervals[i].Start.Before(intervals[j].Start)
	})
	return intervals, nil
}

// isFeedHeader reports whether row is the column header, which starts with "interval"
func isFeedHeader(row []string) bool {
	first := strings.TrimPrefix(strings.TrimSpace(row[0]), "\ufeff")
	return strings.EqualFold(first, "interval")
}

func feedReader(raw []byte) (io.Reader, error) {
	if len(raw) >= 2 && raw[0] == 0x1f && raw[1] == 0x8b {
		zr, err := gzip.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("open gzip feed: %w", err)
		}
		defer zr.Close()
		plain, err := io.ReadAll(zr)
		if err != nil {
			return nil, fmt.Errorf("decompress feed: %w", err)
		}
		return bytes.NewReader(plain), nil
	}
	return bytes.NewReader(raw), nil
}

func parseInterval(row []string) (SwapInterval, error) {
	if len(row) != feedColumns {
		return SwapInterval{}, fmt.Errorf("expected %d columns, got %d", feedColumns, len(row))
	}
	var (
		iv  SwapInterval
		err error
	)
	if iv.Start, err = parseFeedTime(row[0]); err != nil {
		return iv, err
	}
	floats := []*float64{&iv.Open, &iv.Close, &iv.Min, &iv.Max}
	for i, dst := range floats {
		if *dst, err = strconv.ParseFloat(strings.TrimSpace(row[1+i]), 64); err != nil {
			return iv, fmt.Errorf("column %d: %w", 1+i, err)
		}
	}
	if iv.MinBlock, err = parseBlock(row[5]); err != nil {
		return iv, fmt.Errorf("min block: %w", err)
	}
	if iv.MaxBlock, err = parseBlock(row[6]); err != nil {
		return iv, fmt.Errorf("max block: %w", err)
	}
	if iv.TxCount, err = strconv.ParseInt(strings.TrimSpace(row[7]), 10, 64); err != nil {
		return iv, fmt.Errorf("tx count: %w", err)
	}
	prev := strings.TrimSpace(row[8])
	if prev == noValue || prev == "" {
		iv.PrevClose = iv.Open
	} else if iv.PrevClose, err = strconv.ParseFloat(prev, 64); err != nil {
		return iv, fmt.Errorf("prev close: %w", err)
	}
	return iv, nil
}

// parseBlock accepts integers rendered as floats ("123.0") by the feed exporter
func parseBlock(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if v, err := strconv.ParseUint(s, 10, 64); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 {
		return 0, fmt.Errorf("invalid block %q", s)
	}
	return uint64(f), nil
}

func parseFeedTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range feedTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid interval time %q", s)
}

// Timestamps returns the start of every interval
func (h *SwapHistory) Timestamps() []time.Time {
	return utils.Map(h.Intervals, func(iv SwapInterval) time.Time { return iv.Start })
}

func (h *SwapHistory) Opens() []float64  { return h.column(func(iv SwapInterval) float64 { return iv.Open }) }
func (h *SwapHistory) Closes() []float64 { return h.column(func(iv SwapInterval) float64 { return iv.Close }) }
func (h *SwapHistory) Mins() []float64   { return h.column(func(iv SwapInterval) float64 { return iv.Min }) }
func (h *SwapHistory) Maxs() []float64   { return h.column(func(iv SwapInterval) float64 { return iv.Max }) }

func (h *SwapHistory) column(get func(SwapInterval) float64) []float64 {
	return utils.Map(h.Intervals, get)
}

// Between returns the intervals starting in [start, end)
func (h *SwapHistory) Between(start, end time.Time) []SwapInterval {
	return utils.Filter(h.Intervals, func(iv SwapInterval) bool {
		return !iv.Start.Before(start) && iv.Start.Before(end)
	})
}

// Last returns the most recent interval
func (h *SwapHistory) Last() (SwapInterval, bool) {
	if len(h.Intervals) == 0 {
		return SwapInterval{}, false
	}
	return h.Intervals[len(h.Intervals)-1], true
}

func (h *SwapHistory) String() string {
	if h.Pair == nil {
		return "SwapHistory"
	}
	return "SwapHistory: " + h.Pair.Address.Hex()
}
