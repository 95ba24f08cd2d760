package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"koi-classifier/internal/common"
	"koi-classifier/internal/features"
	"koi-classifier/internal/ml"
	"koi-classifier/internal/storage"
)

const (
	topFeatureCount     = 5
	defaultLogLimit     = 100
	maxLogLimit         = 10000
	predictionSourceOne = "single"
	predictionSourceRec = "batch"
	predictionSourceCSV = "csv"
)

type healthResponse struct {
	Status       string    `json:"status"`
	ModelTrained bool      `json:"model_trained"`
	Timestamp    time.Time `json:"timestamp"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:       "healthy",
		ModelTrained: s.store.HasModel(),
		Timestamp:    s.now().UTC(),
	})
}

type trainResponse struct {
	Success bool        `json:"success"`
	Stats   *modelStats `json:"stats"`
	ml.TrainingRun
}

// handleTrain handles POST /api/train.
func (s *Server) handleTrain(w http.ResponseWriter, r *http.Request) {
	up, err := s.readUpload(w, r)
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	raw := up.TestSize
	if raw == "" {
		raw = r.URL.Query().Get("test_size")
	}
	testSize, err := parseTestSize(raw)
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	s.train(w, r, up.Text, testSize)
}

// handleTrainArchive handles POST /api/train/archive?limit=&test_size=. It downloads
// labeled KOIs from the exoplanet archive and trains on them.
func (s *Server) handleTrainArchive(w http.ResponseWriter, r *http.Request) {
	if s.archive == nil {
		writeError(w, http.StatusNotFound, "ArchiveDisabled", "archive training is not configured")
		return
	}

	testSize, err := parseTestSize(r.URL.Query().Get("test_size"))
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	limit := s.config.ArchiveRowLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > common.MaxArchiveRowLimit {
			s.handleError(w, r, badRequest("limit must be an integer between 1 and "+strconv.Itoa(common.MaxArchiveRowLimit)))
			return
		}
		limit = n
	}
	if limit <= 0 {
		limit = common.DefaultArchiveRowLimit
	}

	text, err := s.archive.FetchTrainingCSV(r.Context(), limit)
	if err != nil {
		log.Warn().Err(err).Int("limit", limit).Msg("Archive fetch failed")
		writeError(w, http.StatusBadGateway, "ArchiveUnavailable", err.Error())
		return
	}

	s.train(w, r, text, testSize)
}

func (s *Server) train(w http.ResponseWriter, r *http.Request, text string, testSize float64) {
	result, err := s.trainer.TrainWith(text, ml.TrainOptions{TestSize: testSize})
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, trainResponse{
		Success:     true,
		Stats:       newModelStats(result.Model),
		TrainingRun: result.Run,
	})
}

type historyResponse struct {
	Runs  []ml.TrainingRun `json:"runs"`
	Count int              `json:"count"`
}

// handleHistory handles GET /api/train.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	runs := []ml.TrainingRun{}
	if s.history != nil {
		runs = s.history.List()
	}
	writeJSON(w, http.StatusOK, historyResponse{Runs: runs, Count: len(runs)})
}

// handlePredict handles POST /api/predict.
func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	var input map[string]any
	if err := s.decodeJSON(w, r, &input); err != nil {
		s.handleError(w, r, err)
		return
	}
	if input == nil {
		s.handleError(w, r, badRequest("request body must be a JSON object of feature values"))
		return
	}

	pred := s.predictor.PredictMap(input)

	var modelID string
	if pred.ModelUsed == common.ModelUsedTrained {
		if m := s.store.Get(); m != nil {
			modelID = m.ID
		}
	}
	s.logPredictions([]storage.PredictionRecord{
		newPredictionRecord(s.now(), predictionSourceOne, "", pred, modelID),
	})

	writeJSON(w, http.StatusOK, pred)
}

type explainResponse struct {
	ModelID            string                   `json:"model_id"`
	Prediction         ml.Prediction            `json:"prediction"`
	ConfirmedScore     float64                  `json:"confirmed_score"`
	FalsePositiveScore float64                  `json:"false_positive_score"`
	Contributions      []ml.FeatureContribution `json:"contributions"`
}

// handleExplain handles POST /api/explain. It breaks the trained model's
// score for one candidate down by feature.
func (s *Server) handleExplain(w http.ResponseWriter, r *http.Request) {
	var input map[string]any
	if err := s.decodeJSON(w, r, &input); err != nil {
		s.handleError(w, r, err)
		return
	}
	if input == nil {
		s.handleError(w, r, badRequest("request body must be a JSON object of feature values"))
		return
	}

	m := s.store.Get()
	if m == nil {
		writeNoModel(w)
		return
	}

	e := ml.Explain(features.FromMap(input), m)
	writeJSON(w, http.StatusOK, explainResponse{
		ModelID:            m.ID,
		Prediction:         e.Prediction(),
		ConfirmedScore:     e.ConfirmedScore,
		FalsePositiveScore: e.FalsePositiveScore,
		Contributions:      e.Contributions,
	})
}

type batchRequest struct {
	Data []map[string]any `json:"data"`
}

// handlePredictBatch handles POST /api/predict-batch.
func (s *Server) handlePredictBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.handleError(w, r, err)
		return
	}
	if req.Data == nil {
		s.handleError(w, r, badRequest(`request body must carry an array in the "data" field`))
		return
	}

	result := s.predictor.PredictRecords(req.Data)
	s.logBatch(predictionSourceRec, result)
	writeJSON(w, http.StatusOK, result)
}

// handlePredictCSV handles POST /api/predict-csv.
func (s *Server) handlePredictCSV(w http.ResponseWriter, r *http.Request) {
	text, err := s.readCSV(w, r)
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	result, err := s.predictor.PredictCSV(text, s.config.RowSlack)
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	s.logBatch(predictionSourceCSV, result)
	writeJSON(w, http.StatusOK, result)
}

type predictionLogResponse struct {
	Predictions []storage.PredictionRecord `json:"predictions"`
	Count       int                        `json:"count"`
}

// handlePredictionLog handles GET /api/predictions?since=&until=&limit=.
// Times are RFC 3339; the default window is everything up to now.
func (s *Server) handlePredictionLog(w http.ResponseWriter, r *http.Request) {
	if s.predictions == nil {
		writeError(w, http.StatusNotFound, "PredictionLogDisabled", "prediction log requires a configured data path")
		return
	}

	q := r.URL.Query()
	since, err := parseTimeParam(q.Get("since"), time.Unix(0, 0))
	if err != nil {
		s.handleError(w, r, badRequest("invalid since: "+err.Error()))
		return
	}
	until, err := parseTimeParam(q.Get("until"), s.now())
	if err != nil {
		s.handleError(w, r, badRequest("invalid until: "+err.Error()))
		return
	}

	limit := defaultLogLimit
	if raw := q.Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 1 || limit > maxLogLimit {
			s.handleError(w, r, badRequest("limit must be an integer between 1 and "+strconv.Itoa(maxLogLimit)))
			return
		}
	}

	records, err := s.predictions.GetPredictionsInRange(since, until, limit)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	if records == nil {
		records = []storage.PredictionRecord{}
	}
	writeJSON(w, http.StatusOK, predictionLogResponse{Predictions: records, Count: len(records)})
}

type modelStatsResponse struct {
	ModelTrained bool        `json:"model_trained"`
	Stats        *modelStats `json:"stats"`
}

// handleModelStats handles GET /api/model-stats.
func (s *Server) handleModelStats(w http.ResponseWriter, r *http.Request) {
	m := s.store.Get()
	writeJSON(w, http.StatusOK, modelStatsResponse{
		ModelTrained: m != nil,
		Stats:        newModelStats(m),
	})
}

// handleDeleteModel handles DELETE /api/model.
func (s *Server) handleDeleteModel(w http.ResponseWriter, r *http.Request) {
	if !s.trainer.Reset() {
		writeError(w, http.StatusNotFound, "NoModel", "no model loaded")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Model removed successfully"})
}

type importanceResponse struct {
	ModelID     string            `json:"model_id"`
	Importances []ml.FeatureScore `json:"importances"`
	Top         []string          `json:"top_features"`
}

// handleFeatureImportance handles GET /api/feature-importance.
func (s *Server) handleFeatureImportance(w http.ResponseWriter, r *http.Request) {
	m := s.store.Get()
	if m == nil {
		writeNoModel(w)
		return
	}
	writeJSON(w, http.StatusOK, importanceResponse{
		ModelID:     m.ID,
		Importances: m.Importance,
		Top:         ml.TopFeatures(m.Importance, topFeatureCount),
	})
}

type confusionResponse struct {
	ModelID string             `json:"model_id"`
	Matrix  ml.ConfusionMatrix `json:"matrix"`
	Metrics ml.Evaluation      `json:"metrics"`
	Samples int                `json:"samples"`
}

// handleConfusionMatrix handles GET /api/confusion-matrix.
func (s *Server) handleConfusionMatrix(w http.ResponseWriter, r *http.Request) {
	m := s.store.Get()
	if m == nil {
		writeNoModel(w)
		return
	}
	writeJSON(w, http.StatusOK, confusionResponse{
		ModelID: m.ID,
		Matrix:  m.Evaluation.Matrix,
		Metrics: m.Evaluation,
		Samples: m.Evaluation.Matrix.Total(),
	})
}

func (s *Server) handleDownloadTemplate(w http.ResponseWriter, r *http.Request) {
	writeCSVAttachment(w, common.DefaultTrainingTemplate, trainingTemplate)
}

func (s *Server) handleDownloadPredictionSample(w http.ResponseWriter, r *http.Request) {
	writeCSVAttachment(w, common.DefaultPredictionSample, predictionSample)
}

func writeCSVAttachment(w http.ResponseWriter, filename, content string) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(content))
}

func writeNoModel(w http.ResponseWriter) {
	writeError(w, http.StatusBadRequest, "NoModel", "no model trained, upload training data first")
}

// decodeJSON reads a size-capped JSON body into v.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxUploadBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if isTooLarge(err) {
			return &http.MaxBytesError{Limit: s.config.MaxUploadBytes}
		}
		return badRequest("invalid JSON body: " + err.Error())
	}
	return nil
}

func (s *Server) logBatch(source string, result *ml.BatchResult) {
	if s.predictions == nil || len(result.Predictions) == 0 {
		return
	}

	ts := s.now()
	records := make([]storage.PredictionRecord, len(result.Predictions))
	for i, item := range result.Predictions {
		records[i] = newPredictionRecord(ts, source, item.Name, item.Prediction, result.ModelID)
	}
	s.logPredictions(records)
}

// logPredictions persists records. Failures are logged and never fail the
// request.
func (s *Server) logPredictions(records []storage.PredictionRecord) {
	if s.predictions == nil {
		return
	}
	if err := s.predictions.LogPredictions(records); err != nil {
		s.metrics.ErrorsTotal.Inc()
		log.Warn().Err(err).Int("records", len(records)).Msg("Failed to log predictions")
	}
}

func newPredictionRecord(ts time.Time, source, name string, pred ml.Prediction, modelID string) storage.PredictionRecord {
	return storage.PredictionRecord{
		Timestamp:  ts,
		Source:     source,
		Name:       name,
		Prediction: pred.Prediction,
		Confidence: pred.Confidence,
		ModelUsed:  pred.ModelUsed,
		ModelID:    modelID,
	}
}

func parseTimeParam(raw string, def time.Time) (time.Time, error) {
	if raw == "" {
		return def, nil
	}
	return time.Parse(time.RFC3339, raw)
}
