package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/san-kum/trackprop/internal/actors"
	"github.com/san-kum/trackprop/internal/config"
	"github.com/san-kum/trackprop/internal/propagator"
	"github.com/san-kum/trackprop/internal/track"
)

var ErrRunNotFound = errors.New("storage: run not found")

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID         string             `json:"id"`
	Name       string             `json:"name"`
	Timestamp  time.Time          `json:"timestamp"`
	Seed       int64              `json:"seed"`
	Stepper    string             `json:"stepper"`
	Field      string             `json:"field"`
	Status     string             `json:"status"`
	Reason     string             `json:"reason"`
	Trigger    string             `json:"trigger,omitempty"`
	Steps      int                `json:"steps"`
	PathLength float64            `json:"path_length"`
	Momentum   float64            `json:"momentum"`
	Surfaces   []string           `json:"surfaces,omitempty"`
	Metrics    map[string]float64 `json:"metrics,omitempty"`
	Error      string             `json:"error,omitempty"`
	Config     *config.Config     `json:"config,omitempty"`
}

// NewRunMetadata describes one finished propagation.
func NewRunMetadata(cfg *config.Config, out *propagator.Outcome, metrics map[string]float64) RunMetadata {
	meta := RunMetadata{
		Name:       cfg.Name,
		Timestamp:  time.Now(),
		Seed:       cfg.Seed,
		Stepper:    cfg.Stepper,
		Field:      cfg.Field.Type,
		Status:     out.Status.String(),
		Reason:     out.Reason,
		Trigger:    out.Trigger,
		Steps:      out.Steps,
		PathLength: out.State.PathLength,
		Momentum:   out.State.Momentum,
		Surfaces:   out.Navigation.SurfacesPassed,
		Metrics:    metrics,
		Config:     cfg,
	}
	if meta.Name == "" {
		meta.Name = "custom"
	}
	if out.Err != nil {
		meta.Error = out.Err.Error()
	}
	return meta
}

var stepsHeader = []string{"step", "x", "y", "z", "tx", "ty", "tz", "p", "path", "h", "limit", "surface"}

// Save writes metadata.json and steps.csv into a new run directory and
// returns the run ID.
func (s *Store) Save(meta RunMetadata, steps []actors.StepRecord) (string, error) {
	if meta.ID == "" {
		meta.ID = uuid.Must(uuid.NewV7()).String()
	}
	if meta.Timestamp.IsZero() {
		meta.Timestamp = time.Now()
	}
	runDir := filepath.Join(s.baseDir, meta.ID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	metaFile, err := os.Create(filepath.Join(runDir, "metadata.json"))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	csvFile, err := os.Create(filepath.Join(runDir, "steps.csv"))
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	w := csv.NewWriter(csvFile)
	if err := w.Write(stepsHeader); err != nil {
		return "", err
	}
	for _, st := range steps {
		row := []string{strconv.Itoa(st.Step)}
		for _, v := range st.Position {
			row = append(row, formatFloat(v))
		}
		for _, v := range st.Direction {
			row = append(row, formatFloat(v))
		}
		row = append(row,
			formatFloat(st.Momentum),
			formatFloat(st.PathLength),
			formatFloat(st.StepLength),
			st.Limit,
			st.Surface,
		)
		if err := w.Write(row); err != nil {
			return "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}

	return meta.ID, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// List returns all runs, newest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].Timestamp.After(runs[j].Timestamp)
	})
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, "metadata.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

func (s *Store) LoadSteps(runID string) ([]actors.StepRecord, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, "steps.csv"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = len(stepsHeader)

	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return []actors.StepRecord{}, nil
	}

	steps := make([]actors.StepRecord, 0, len(records)-1)
	for i, record := range records[1:] {
		st, err := parseStep(record)
		if err != nil {
			return nil, fmt.Errorf("storage: steps.csv line %d: %w", i+2, err)
		}
		steps = append(steps, st)
	}
	return steps, nil
}

func parseStep(record []string) (actors.StepRecord, error) {
	var st actors.StepRecord
	step, err := strconv.Atoi(record[0])
	if err != nil {
		return st, err
	}
	st.Step = step

	vals := make([]float64, 9)
	for i := range vals {
		v, err := strconv.ParseFloat(record[i+1], 64)
		if err != nil {
			return st, err
		}
		vals[i] = v
	}
	st.Position = track.Vector3{vals[0], vals[1], vals[2]}
	st.Direction = track.Vector3{vals[3], vals[4], vals[5]}
	st.Momentum = vals[6]
	st.PathLength = vals[7]
	st.StepLength = vals[8]
	st.Limit = record[10]
	st.Surface = record[11]
	return st, nil
}
