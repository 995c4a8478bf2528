package tracks

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/hupe1980/sfmgo/model"
	"github.com/hupe1980/sfmgo/optional"
)

// The text encoding is row-oriented: a versioned header line followed by
// one tab-separated record per (shot, track) cell. The only hard contract
// is round-trip equality; the byte layout may change between versions.
const (
	headerPrefix   = "SFMGO_TRACKS_VERSION"
	currentVersion = 2
)

// FormatError reports a malformed tracks file.
type FormatError struct {
	Line int
	Msg  string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("tracks: line %d: %s", e.Line, e.Msg)
}

// AsString serializes the graph to its text encoding. Rows are emitted in
// sorted (shot, track) order so equal graphs produce equal strings.
func (m *Manager) AsString() string {
	var sb strings.Builder
	m.writeTo(&sb)
	return sb.String()
}

// WriteToFile writes the text encoding to path. A ".gz" extension selects
// gzip compression.
func (m *Manager) WriteToFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("tracks: create %s: %w", path, err)
	}
	defer f.Close()

	var w io.Writer = f
	if filepath.Ext(path) == ".gz" {
		gw := gzip.NewWriter(f)
		defer gw.Close()
		w = gw
	}
	bw := bufio.NewWriter(w)
	m.writeTo(bw)
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("tracks: write %s: %w", path, err)
	}
	return nil
}

// FromString parses the text encoding produced by AsString.
func FromString(s string) (*Manager, error) {
	return readFrom(strings.NewReader(s))
}

// FromFile reads a tracks file written by WriteToFile. A ".gz" extension
// selects gzip decompression.
func FromFile(path string) (*Manager, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("tracks: open %s: %w", path, err)
	}
	defer f.Close()

	var r io.Reader = f
	if filepath.Ext(path) == ".gz" {
		gr, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("tracks: open %s: %w", path, err)
		}
		defer gr.Close()
		r = gr
	}
	return readFrom(r)
}

func (m *Manager) writeTo(w io.Writer) {
	fmt.Fprintf(w, "%s_v%d\n", headerPrefix, currentVersion)
	for _, shot := range m.ShotIDs() {
		row := m.shots[shot]
		tracksIDs := make([]model.TrackID, 0, len(row))
		for track := range row {
			tracksIDs = append(tracksIDs, track)
		}
		sort.Strings(tracksIDs)
		for _, track := range tracksIDs {
			writeRecord(w, shot, track, row[track])
		}
	}
}

func writeRecord(w io.Writer, shot model.ShotID, track model.TrackID, obs model.Observation) {
	depth, hasDepth := obs.DepthPrior.Get()
	radial := 0
	if depth.IsRadial {
		radial = 1
	}
	hasDepthFlag := 0
	if hasDepth {
		hasDepthFlag = 1
	}
	fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t%s\t%d\t%d\t%d\t%d\t%d\t%d\t%s\t%s\t%d\n",
		shot, track, obs.ID,
		formatFloat(obs.Point[0]), formatFloat(obs.Point[1]), formatFloat(obs.Scale),
		obs.Color[0], obs.Color[1], obs.Color[2],
		obs.Segmentation, obs.Instance,
		hasDepthFlag, formatFloat(depth.Value), formatFloat(depth.StdDeviation), radial,
	)
}

func readFrom(r io.Reader) (*Manager, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return nil, fmt.Errorf("tracks: read header: %w", err)
		}
		return NewManager(), nil
	}
	version, err := parseHeader(sc.Text())
	if err != nil {
		return nil, err
	}

	m := NewManager()
	line := 1
	for sc.Scan() {
		line++
		text := sc.Text()
		if text == "" {
			continue
		}
		shot, track, obs, err := parseRecord(text, version, line)
		if err != nil {
			return nil, err
		}
		m.AddObservation(shot, track, obs)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("tracks: read: %w", err)
	}
	return m, nil
}

func parseHeader(line string) (int, error) {
	if !strings.HasPrefix(line, headerPrefix) {
		return 0, &FormatError{Line: 1, Msg: "missing tracks header"}
	}
	suffix := strings.TrimPrefix(line, headerPrefix)
	version, err := strconv.Atoi(strings.TrimPrefix(suffix, "_v"))
	if err != nil || version < 1 || version > currentVersion {
		return 0, &FormatError{Line: 1, Msg: fmt.Sprintf("unsupported version %q", suffix)}
	}
	return version, nil
}

func parseRecord(text string, version, line int) (model.ShotID, model.TrackID, model.Observation, error) {
	fields := strings.Split(text, "\t")
	want := 15
	if version == 1 {
		want = 11
	}
	if len(fields) != want {
		return "", "", model.Observation{}, &FormatError{Line: line, Msg: fmt.Sprintf("expected %d fields, got %d", want, len(fields))}
	}

	var obs model.Observation
	var errs []error
	atoi := func(s string) int {
		v, err := strconv.Atoi(s)
		if err != nil {
			errs = append(errs, err)
		}
		return v
	}
	atof := func(s string) float64 {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			errs = append(errs, err)
		}
		return v
	}

	shot := fields[0]
	track := fields[1]
	obs.ID = model.FeatureID(atoi(fields[2]))
	obs.Point = [2]float64{atof(fields[3]), atof(fields[4])}
	obs.Scale = atof(fields[5])
	obs.Color = [3]int{atoi(fields[6]), atoi(fields[7]), atoi(fields[8])}
	obs.Segmentation = atoi(fields[9])
	obs.Instance = atoi(fields[10])
	if version >= 2 && atoi(fields[11]) != 0 {
		obs.DepthPrior = optional.Of(model.Depth{
			Value:        atof(fields[12]),
			StdDeviation: atof(fields[13]),
			IsRadial:     atoi(fields[14]) != 0,
		})
	}
	if len(errs) > 0 {
		return "", "", model.Observation{}, &FormatError{Line: line, Msg: fmt.Sprintf("malformed record: %v", errs[0])}
	}
	return shot, track, obs, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
