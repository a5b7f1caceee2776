package session

import (
	"math"
	"strconv"
	"strings"

	"tmscraper/pkg/errors"
)

// Manifest defaults
const (
	ManifestType        = "image"
	ManifestVersion     = "2.4.4"
	DefaultEpochs       = 50
	DefaultBatchSize    = 16
	DefaultLearningRate = 0.001
)

// AppData carries the training hyperparameters
type AppData struct {
	PublishResults    map[string]interface{} `json:"publishResults"`
	TrainEpochs       int                    `json:"trainEpochs"`
	TrainBatchSize    int                    `json:"trainBatchSize"`
	TrainLearningRate float64                `json:"trainLearningRate"`
}

// ManifestConfiguration is written as manifest.json at the archive root
type ManifestConfiguration struct {
	Type    string  `json:"type"`
	Version string  `json:"version"`
	AppData AppData `json:"appdata"`
}

// NewManifestConfiguration returns the default manifest
func NewManifestConfiguration() *ManifestConfiguration {
	return &ManifestConfiguration{
		Type:    ManifestType,
		Version: ManifestVersion,
		AppData: AppData{
			PublishResults:    map[string]interface{}{},
			TrainEpochs:       DefaultEpochs,
			TrainBatchSize:    DefaultBatchSize,
			TrainLearningRate: DefaultLearningRate,
		},
	}
}

func (m *ManifestConfiguration) Epochs() int           { return m.AppData.TrainEpochs }
func (m *ManifestConfiguration) BatchSize() int        { return m.AppData.TrainBatchSize }
func (m *ManifestConfiguration) LearningRate() float64 { return m.AppData.TrainLearningRate }

func (m *ManifestConfiguration) SetEpochs(n int) error {
	if n <= 0 {
		return errors.Newf(errors.ErrorTypeValidation, "epochs must be positive, got %d", n)
	}
	m.AppData.TrainEpochs = n
	return nil
}

func (m *ManifestConfiguration) SetBatchSize(n int) error {
	if n <= 0 {
		return errors.Newf(errors.ErrorTypeValidation, "batch size must be positive, got %d", n)
	}
	m.AppData.TrainBatchSize = n
	return nil
}

func (m *ManifestConfiguration) SetLearningRate(lr float64) error {
	if math.IsNaN(lr) || math.IsInf(lr, 0) || lr <= 0 {
		return errors.Newf(errors.ErrorTypeValidation, "learning rate must be a positive number, got %v", lr)
	}
	m.AppData.TrainLearningRate = lr
	return nil
}

// SetEpochsString parses s as a whole number of epochs
func (m *ManifestConfiguration) SetEpochsString(s string) error {
	n, err := parseInt("epochs", s)
	if err != nil {
		return err
	}
	return m.SetEpochs(n)
}

// SetBatchSizeString parses s as a whole batch size
func (m *ManifestConfiguration) SetBatchSizeString(s string) error {
	n, err := parseInt("batch size", s)
	if err != nil {
		return err
	}
	return m.SetBatchSize(n)
}

// SetLearningRateString parses s as a decimal learning rate
func (m *ManifestConfiguration) SetLearningRateString(s string) error {
	lr, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return errors.Newf(errors.ErrorTypeValidation, "learning rate %q is not a number", s)
	}
	return m.SetLearningRate(lr)
}

// Validate checks the hyperparameters
func (m *ManifestConfiguration) Validate() error {
	if m.Type == "" || m.Version == "" {
		return errors.New(errors.ErrorTypeValidation, "manifest type and version are required")
	}
	probe := *m
	if err := probe.SetEpochs(m.AppData.TrainEpochs); err != nil {
		return err
	}
	if err := probe.SetBatchSize(m.AppData.TrainBatchSize); err != nil {
		return err
	}
	return probe.SetLearningRate(m.AppData.TrainLearningRate)
}

// normalize restores fields a loaded document may lack
func (m *ManifestConfiguration) normalize() {
	if m.AppData.PublishResults == nil {
		m.AppData.PublishResults = map[string]interface{}{}
	}
}

func parseInt(field, s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, errors.Newf(errors.ErrorTypeValidation, "%s %q is not a whole number", field, s)
	}
	return n, nil
}
