package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"pokefusion/internal/config"
	"pokefusion/internal/entity"
	"pokefusion/internal/model"
	"pokefusion/internal/pipeline"
	"pokefusion/internal/provider"
	"pokefusion/internal/storage"
	"pokefusion/internal/utils"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// 完成的运行在注册表中保留一段时间，供轮询端补拉事件。
const runRetention = 10 * time.Minute

// 每次成功生成扣除的积分数。
const generationCost = 1

var (
	// ErrInsufficientCredits 表示用户余额不足，无法开始生成。
	ErrInsufficientCredits = errors.New("insufficient credits")
	// ErrInvalidSources 表示请求没有给出可用的两个来源。
	ErrInvalidSources = errors.New("two source pokemon are required")
)

// FusionService 融合生成服务，封装流水线调度和落库逻辑。
type FusionService struct {
	repo      model.Repository
	storage   storage.Storage
	providers *provider.Set
	cfg       config.Config

	// notifyFunc 用于向 SSE 通道推送进度事件（由调用方设置）
	notifyFunc func(clientID string, fusionID uint, event entity.FusionEvent)

	mu   sync.Mutex
	runs map[uint]*pipeline.Buffer
}

// NewFusionService 创建融合服务实例
func NewFusionService(repo model.Repository, store storage.Storage, providers *provider.Set, cfg config.Config) *FusionService {
	return &FusionService{
		repo:      repo,
		storage:   store,
		providers: providers,
		cfg:       cfg,
		runs:      make(map[uint]*pipeline.Buffer),
	}
}

// SetNotifyFunc 设置通知函数（用于 SSE 推送）
func (s *FusionService) SetNotifyFunc(fn func(clientID string, fusionID uint, event entity.FusionEvent)) {
	s.notifyFunc = fn
}

// StartFusion validates the request, charges nothing yet, persists a pending
// record, and launches the pipeline in the background. The credit check here
// is a gate only; the actual debit happens after the run persists a
// non-fallback result.
func (s *FusionService) StartFusion(ctx context.Context, userID uint, req entity.GenerateFusionRequest) (*entity.DbFusion, error) {
	if s.repo == nil {
		return nil, errors.New("service not initialised")
	}

	headName, headImage, err := s.resolveSource(ctx, req.HeadPokemonID, req.HeadName, req.SourceImage1)
	if err != nil {
		return nil, err
	}
	bodyName, bodyImage, err := s.resolveSource(ctx, req.BodyPokemonID, req.BodyName, req.SourceImage2)
	if err != nil {
		return nil, err
	}

	balance, err := s.repo.CreditBalance(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("check balance: %w", err)
	}
	if balance < generationCost {
		return nil, ErrInsufficientCredits
	}

	fusionName := strings.TrimSpace(req.FusionName)
	if fusionName == "" {
		fusionName = BuildFusionName(headName, bodyName)
	}

	record := entity.DbFusion{
		UserID:        userID,
		CorrelationID: uuid.NewString(),
		HeadName:      headName,
		BodyName:      bodyName,
		FusionName:    fusionName,
		SourceImage1:  headImage,
		SourceImage2:  bodyImage,
		Status:        entity.FusionStatusPending,
	}
	if err := s.repo.CreateFusion(ctx, &record); err != nil {
		return nil, fmt.Errorf("create fusion record: %w", err)
	}

	buf := pipeline.NewBuffer()
	s.mu.Lock()
	s.runs[record.ID] = buf
	s.mu.Unlock()

	go s.handleFusion(record, strings.TrimSpace(req.ClientID), buf)

	return &record, nil
}

// RunEvents returns the events observed so far for a run, whether the run has
// finished, and whether the run is known to the registry at all.
func (s *FusionService) RunEvents(fusionID uint) ([]entity.FusionEvent, bool, bool) {
	s.mu.Lock()
	buf := s.runs[fusionID]
	s.mu.Unlock()
	if buf == nil {
		return nil, false, false
	}

	snapshot, closed := buf.Snapshot()
	events := make([]entity.FusionEvent, 0, len(snapshot))
	for _, ev := range snapshot {
		events = append(events, pipelineEventToDTO(ev))
	}
	return events, closed, true
}

// resolveSource turns either a catalogue reference or a direct name+image pair
// into a usable (name, image) source.
func (s *FusionService) resolveSource(ctx context.Context, pokemonID uint, name, image string) (string, string, error) {
	if pokemonID > 0 {
		pokemon, err := s.repo.GetPokemon(ctx, pokemonID)
		if err != nil {
			return "", "", fmt.Errorf("load pokemon %d: %w", pokemonID, err)
		}
		if !pokemon.IsActive {
			return "", "", fmt.Errorf("%w: pokemon %q is not available", ErrInvalidSources, pokemon.Name)
		}
		return pokemon.Name, pokemon.SpriteURL, nil
	}

	name = strings.TrimSpace(name)
	image = strings.TrimSpace(image)
	if name == "" || image == "" {
		return "", "", ErrInvalidSources
	}
	return name, image, nil
}

// runState carries mutable intermediates across stage closures. The datum
// flowing between stages is always the current image reference; the textual
// description lives here instead.
type runState struct {
	mu          sync.Mutex
	description string
	fields      pipeline.StructuredFields
}

// buildStages assembles the stage list for one run from configuration.
func (s *FusionService) buildStages(record *entity.DbFusion, state *runState) []pipeline.Stage {
	retries := s.cfg.StageMaxRetries
	baseDelay := time.Duration(s.cfg.StageRetryBaseMs) * time.Millisecond

	var stages []pipeline.Stage

	if s.cfg.EnableBlendStage && s.providers != nil && s.providers.Blender != nil {
		blender := s.providers.Blender
		fn := func(ctx context.Context, _ string) (string, error) {
			return blender.Blend(ctx, record.SourceImage1, record.SourceImage2, record.HeadName, record.BodyName)
		}
		stages = append(stages, pipeline.Stage{
			Name:    pipeline.StageBlend,
			Timeout: s.cfg.BlendTimeout,
			Fn:      pipeline.WithRetry(fn, retries, baseDelay, provider.IsTransient),
		})
	}

	// 描述与增强成对出现：描述文本只被增强阶段消费。
	if s.cfg.EnableEnhanceStage && s.providers != nil && s.providers.Describer != nil && s.providers.Enhancer != nil {
		describer := s.providers.Describer
		describeFn := func(ctx context.Context, input string) (string, error) {
			text, err := describer.Describe(ctx, input)
			if err != nil {
				return "", err
			}
			state.mu.Lock()
			state.description = text
			state.fields = pipeline.ParseDescription(text)
			state.mu.Unlock()
			// 阶段间传递的始终是当前图片引用
			return input, nil
		}
		stages = append(stages, pipeline.Stage{
			Name:    pipeline.StageDescribe,
			Timeout: s.cfg.DescribeTimeout,
			Fn:      pipeline.WithRetry(describeFn, retries, baseDelay, provider.IsTransient),
		})

		enhancer := s.providers.Enhancer
		fusionName := record.FusionName
		enhanceFn := func(ctx context.Context, input string) (string, error) {
			state.mu.Lock()
			prompt := state.fields.EnhancePrompt(fusionName)
			state.mu.Unlock()
			return enhancer.Enhance(ctx, input, prompt)
		}
		stages = append(stages, pipeline.Stage{
			Name:    pipeline.StageEnhance,
			Timeout: s.cfg.EnhanceTimeout,
			Fn:      pipeline.WithRetry(enhanceFn, retries, baseDelay, provider.IsTransient),
		})
	}

	return stages
}

// handleFusion 处理融合生成的核心逻辑
func (s *FusionService) handleFusion(record entity.DbFusion, clientID string, buf *pipeline.Buffer) {
	genCtx, cancelGen := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancelGen()

	logger := logrus.WithFields(logrus.Fields{
		"fusion_id":      record.ID,
		"correlation_id": record.CorrelationID,
	})

	state := &runState{}
	stages := s.buildStages(&record, state)

	push := pipeline.NewFuncSink(func(ev pipeline.Event) {
		s.notify(clientID, record.ID, pipelineEventToDTO(ev))
	}, nil)
	sink := pipeline.NewMultiSink(buf, push)

	runner := pipeline.NewRunner(stages...)
	outcome := runner.Run(genCtx, pipeline.Request{
		CorrelationID: record.CorrelationID,
		SourceImage1:  record.SourceImage1,
		SourceImage2:  record.SourceImage2,
		HeadName:      record.HeadName,
		BodyName:      record.BodyName,
		FusionName:    record.FusionName,
	}, sink)

	saved, outputRef, saveErr := s.persistArtifact(genCtx, &record, outcome.FinalArtifact)

	status := entity.FusionStatusSucceeded
	if outcome.IsFallback {
		status = entity.FusionStatusFallback
	}

	stageLog := make(entity.StageLog, 0, len(outcome.Stages))
	var stageIssues []string
	for _, st := range outcome.Stages {
		logEntry := entity.StageLogEntry{
			Stage:      st.Name,
			Status:     string(st.Status),
			DurationMs: st.Duration.Milliseconds(),
		}
		if st.Err != nil {
			logEntry.Error = st.Err.Error()
			stageIssues = append(stageIssues, fmt.Sprintf("%s: %v", st.Name, st.Err))
		}
		stageLog = append(stageLog, logEntry)
	}

	updates := entity.FusionUpdates{
		Status:      &status,
		IsFallback:  &outcome.IsFallback,
		Saved:       &saved,
		OutputImage: &outputRef,
		StageLog:    &stageLog,
	}

	state.mu.Lock()
	if state.description != "" {
		desc := state.description
		updates.Description = &desc
	}
	state.mu.Unlock()

	var issues []string
	issues = append(issues, stageIssues...)
	if saveErr != nil {
		issues = append(issues, fmt.Sprintf("storage: %v", saveErr))
		logger.WithError(saveErr).Warn("failed to persist fusion artifact")
	}
	if len(issues) > 0 {
		combined := strings.Join(issues, "; ")
		updates.ErrorMessage = &combined
	}

	persistErr := s.updateFusion(record.ID, updates)

	// 扣费在持久化之后：只有非降级结果且落库成功才会扣。
	if !outcome.IsFallback && saved && persistErr == nil {
		s.debitCredits(record.UserID, record.ID)
	} else if !outcome.IsFallback {
		logger.Warn("skipping credit debit, result was not fully persisted")
	}

	logger.WithFields(logrus.Fields{
		"status": status,
		"saved":  saved,
	}).Info("fusion run finished")

	s.scheduleRunCleanup(record.ID)
}

// persistArtifact stores the final artifact bytes and returns the reference to
// record. On storage failure the artifact reference degrades to the original
// URL when there is one, so the client still gets a usable image.
func (s *FusionService) persistArtifact(ctx context.Context, record *entity.DbFusion, artifact string) (bool, string, error) {
	artifact = strings.TrimSpace(artifact)
	if artifact == "" {
		return false, "", errors.New("empty artifact")
	}

	data, ext, err := s.resolveMediaPayload(ctx, artifact)
	if err == nil {
		relPath, saveErr := s.storage.Save(ctx, data, storage.SaveOptions{
			Category:  storage.CategoryFusions,
			Extension: ext,
			BaseName:  fmt.Sprintf("%s-%d", storage.SanitizeToken(record.FusionName), record.ID),
		})
		if saveErr == nil {
			return true, relPath, nil
		}
		err = saveErr
	}

	if strings.HasPrefix(artifact, "http://") || strings.HasPrefix(artifact, "https://") {
		return false, artifact, err
	}
	return false, "", err
}

// resolveMediaPayload 解析媒体数据（URL 或 base64）
func (s *FusionService) resolveMediaPayload(ctx context.Context, payload string) ([]byte, string, error) {
	trimmed := strings.TrimSpace(payload)
	if trimmed == "" {
		return nil, "", fmt.Errorf("empty payload")
	}

	// 处理 URL
	if strings.HasPrefix(trimmed, "http://") || strings.HasPrefix(trimmed, "https://") {
		reqCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
		defer cancel()

		req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, trimmed, nil)
		if err != nil {
			return nil, "", fmt.Errorf("create request: %w", err)
		}

		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return nil, "", fmt.Errorf("download image: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, "", fmt.Errorf("download image http %d", resp.StatusCode)
		}

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, "", fmt.Errorf("read image body: %w", err)
		}

		ext := utils.ExtensionFromMime(resp.Header.Get("Content-Type"))
		if ext == "" {
			ext = utils.ExtensionFromMime(http.DetectContentType(data))
		}
		if ext == "" {
			ext = "bin"
		}

		return data, ext, nil
	}

	// 处理 base64
	data, ext, err := utils.DecodeMediaPayload(trimmed)
	if err == nil {
		return data, ext, nil
	}

	data, ext, err = utils.DecodeMediaPayload(utils.EnsureDataURL(trimmed))
	if err != nil {
		return nil, "", err
	}

	return data, ext, nil
}

// updateFusion 更新融合记录
func (s *FusionService) updateFusion(fusionID uint, updates entity.FusionUpdates) error {
	if s.repo == nil || fusionID == 0 || updates.IsEmpty() {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.repo.UpdateFusion(ctx, fusionID, updates); err != nil {
		logrus.WithError(err).WithField("fusion_id", fusionID).Error("failed to update fusion record")
		return err
	}
	return nil
}

// debitCredits 在成功生成后写入一条消费账目。
func (s *FusionService) debitCredits(userID, fusionID uint) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	entry := entity.DbCreditLedgerEntry{
		UserID:   userID,
		Amount:   -generationCost,
		Reason:   entity.CreditReasonGeneration,
		FusionID: &fusionID,
	}
	if err := s.repo.CreateCreditEntry(ctx, &entry); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"user_id":   userID,
			"fusion_id": fusionID,
		}).Error("failed to debit credits")
	}
}

// notify 推送单个进度事件
func (s *FusionService) notify(clientID string, fusionID uint, event entity.FusionEvent) {
	if s.notifyFunc != nil && strings.TrimSpace(clientID) != "" {
		s.notifyFunc(clientID, fusionID, event)
	}
}

func (s *FusionService) scheduleRunCleanup(fusionID uint) {
	time.AfterFunc(runRetention, func() {
		s.mu.Lock()
		delete(s.runs, fusionID)
		s.mu.Unlock()
	})
}

func pipelineEventToDTO(ev pipeline.Event) entity.FusionEvent {
	return entity.FusionEvent{
		Stage:     ev.Stage,
		Status:    ev.Status,
		Data:      ev.Data,
		Error:     ev.Error,
		Timestamp: ev.Timestamp,
	}
}

// BuildFusionName splices the head of one name onto the tail of the other,
// e.g. Pikachu + Charizard -> Pikazard.
func BuildFusionName(headName, bodyName string) string {
	head := []rune(strings.TrimSpace(headName))
	body := []rune(strings.TrimSpace(bodyName))
	if len(head) == 0 {
		return string(body)
	}
	if len(body) == 0 {
		return string(head)
	}
	return string(head[:(len(head)+1)/2]) + string(body[len(body)/2:])
}
