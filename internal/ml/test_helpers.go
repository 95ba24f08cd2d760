package ml

import "sync"

// MockMetrics implements MetricsInterface for testing
type MockMetrics struct {
	mu               sync.Mutex
	predictions      map[string]int
	latencySum       float64
	confidences      []float64
	fallbackUse      int
	trainings        int
	trainingFailures map[string]int
	trainingDuration float64
	trainingRows     float64
	accuracy         float64
	modelLoaded      bool
	rowsSkipped      float64
}

func (m *MockMetrics) PredictionsInc(modelUsed string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.predictions == nil {
		m.predictions = make(map[string]int)
	}
	m.predictions[modelUsed]++
}

func (m *MockMetrics) PredictionLatencyObserve(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latencySum += v
}

func (m *MockMetrics) PredictionConfidenceObserve(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.confidences = append(m.confidences, v)
}

func (m *MockMetrics) FallbackUseInc() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fallbackUse++
}

func (m *MockMetrics) TrainingsInc() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trainings++
}

func (m *MockMetrics) TrainingFailuresInc(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.trainingFailures == nil {
		m.trainingFailures = make(map[string]int)
	}
	m.trainingFailures[kind]++
}

func (m *MockMetrics) TrainingDurationObserve(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trainingDuration += v
}

func (m *MockMetrics) TrainingRowsSet(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trainingRows = v
}

func (m *MockMetrics) ModelAccuracySet(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accuracy = v
}

func (m *MockMetrics) ModelLoadedSet(v bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.modelLoaded = v
}

func (m *MockMetrics) RowsSkippedAdd(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rowsSkipped += v
}

// mockEvents records published events.
type mockEvents struct {
	mu     sync.Mutex
	events []string
}

func (e *mockEvents) Publish(eventType string, _ any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, eventType)
}
