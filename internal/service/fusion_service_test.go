package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"pokefusion/internal/config"
	"pokefusion/internal/entity"
	"pokefusion/internal/pipeline"
	"pokefusion/internal/provider"
	"pokefusion/internal/storage"
)

func TestBuildFusionName(t *testing.T) {
	tests := []struct {
		name string
		head string
		body string
		want string
	}{
		{
			name: "经典组合",
			head: "Pikachu",
			body: "Charizard",
			want: "Pikaizard",
		},
		{
			name: "单字符头部",
			head: "A",
			body: "Eevee",
			want: "Avee",
		},
		{
			name: "头部为空",
			head: "",
			body: "Snorlax",
			want: "Snorlax",
		},
		{
			name: "身体为空",
			head: "Mew",
			body: "",
			want: "Mew",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BuildFusionName(tt.head, tt.body)
			if got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// fakes

type fakeRepo struct {
	mu sync.Mutex

	nextFusionID uint
	fusions      map[uint]*entity.DbFusion
	updates      map[uint][]entity.FusionUpdates
	entries      []entity.DbCreditLedgerEntry
	pokemons     map[uint]*entity.DbPokemon
}

func newFakeRepo(balance int) *fakeRepo {
	r := &fakeRepo{
		fusions:  make(map[uint]*entity.DbFusion),
		updates:  make(map[uint][]entity.FusionUpdates),
		pokemons: make(map[uint]*entity.DbPokemon),
	}
	if balance != 0 {
		r.entries = append(r.entries, entity.DbCreditLedgerEntry{UserID: 1, Amount: balance, Reason: entity.CreditReasonSignup})
	}
	return r
}

func (r *fakeRepo) CreateUser(context.Context, *entity.DbUser) error          { return nil }
func (r *fakeRepo) UpdateUser(context.Context, uint, entity.UserUpdates) error { return nil }
func (r *fakeRepo) GetUserByEmail(context.Context, string) (*entity.DbUser, error) {
	return nil, errors.New("not implemented")
}
func (r *fakeRepo) GetUserByID(context.Context, uint) (*entity.DbUser, error) {
	return nil, errors.New("not implemented")
}
func (r *fakeRepo) ListUsers(context.Context, *entity.UserQuery) ([]entity.DbUser, *entity.Meta, error) {
	return nil, nil, nil
}
func (r *fakeRepo) DeleteUser(context.Context, uint) error    { return nil }
func (r *fakeRepo) CountUsers(context.Context) (int64, error) { return 0, nil }

func (r *fakeRepo) CreateFusion(_ context.Context, fusion *entity.DbFusion) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextFusionID++
	fusion.ID = r.nextFusionID
	clone := *fusion
	r.fusions[fusion.ID] = &clone
	return nil
}

func (r *fakeRepo) UpdateFusion(_ context.Context, id uint, updates entity.FusionUpdates) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.fusions[id]; !ok {
		return errors.New("fusion not found")
	}
	r.updates[id] = append(r.updates[id], updates)
	return nil
}

func (r *fakeRepo) GetFusion(_ context.Context, id uint) (*entity.DbFusion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fusion, ok := r.fusions[id]
	if !ok {
		return nil, errors.New("fusion not found")
	}
	clone := *fusion
	return &clone, nil
}

func (r *fakeRepo) ListFusions(context.Context, *entity.FusionQuery) ([]entity.DbFusion, *entity.Meta, error) {
	return nil, nil, nil
}
func (r *fakeRepo) DeleteFusion(context.Context, uint) error          { return nil }
func (r *fakeRepo) LikeFusion(context.Context, uint, uint) error      { return nil }
func (r *fakeRepo) UnlikeFusion(context.Context, uint, uint) error    { return nil }
func (r *fakeRepo) FavoriteFusion(context.Context, uint, uint) error  { return nil }
func (r *fakeRepo) UnfavoriteFusion(context.Context, uint, uint) error { return nil }
func (r *fakeRepo) FusionReactionStats(context.Context, []uint, uint) (map[uint]entity.FusionReactionStats, error) {
	return map[uint]entity.FusionReactionStats{}, nil
}

func (r *fakeRepo) CreateCreditEntry(_ context.Context, entry *entity.DbCreditLedgerEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *fakeRepo) CreditBalance(_ context.Context, userID uint) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var balance int64
	for _, entry := range r.entries {
		if entry.UserID == userID {
			balance += int64(entry.Amount)
		}
	}
	return balance, nil
}

func (r *fakeRepo) ListCreditEntries(context.Context, uint, *entity.BaseParams) ([]entity.DbCreditLedgerEntry, *entity.Meta, error) {
	return nil, nil, nil
}

func (r *fakeRepo) CreatePokemon(context.Context, *entity.DbPokemon) error          { return nil }
func (r *fakeRepo) UpdatePokemon(context.Context, uint, entity.PokemonUpdates) error { return nil }
func (r *fakeRepo) DeletePokemon(context.Context, uint) error                        { return nil }
func (r *fakeRepo) GetPokemon(_ context.Context, id uint) (*entity.DbPokemon, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	pokemon, ok := r.pokemons[id]
	if !ok {
		return nil, errors.New("pokemon not found")
	}
	return pokemon, nil
}
func (r *fakeRepo) GetPokemonByName(context.Context, string) (*entity.DbPokemon, error) {
	return nil, errors.New("not implemented")
}
func (r *fakeRepo) ListPokemons(context.Context, bool) ([]entity.DbPokemon, error) { return nil, nil }
func (r *fakeRepo) CountPokemons(context.Context) (int64, error)                   { return 0, nil }

func (r *fakeRepo) debitEntries() []entity.DbCreditLedgerEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	var debits []entity.DbCreditLedgerEntry
	for _, entry := range r.entries {
		if entry.Amount < 0 {
			debits = append(debits, entry)
		}
	}
	return debits
}

func (r *fakeRepo) lastUpdate(id uint) (entity.FusionUpdates, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ups := r.updates[id]
	if len(ups) == 0 {
		return entity.FusionUpdates{}, false
	}
	return ups[len(ups)-1], true
}

type fakeStorage struct {
	mu    sync.Mutex
	saves int
	fail  bool
}

func (f *fakeStorage) Save(_ context.Context, data []byte, opts storage.SaveOptions) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return "", errors.New("disk full")
	}
	f.saves++
	return fmt.Sprintf("%s/2026/01/01/test-%d.png", opts.Category, f.saves), nil
}

type stubBlender struct {
	result string
	err    error
}

func (b *stubBlender) Blend(context.Context, string, string, string, string) (string, error) {
	return b.result, b.err
}

type stubDescriber struct{ text string }

func (d *stubDescriber) Describe(context.Context, string) (string, error) { return d.text, nil }

type stubEnhancer struct{ result string }

func (e *stubEnhancer) Enhance(context.Context, string, string) (string, error) {
	return e.result, nil
}

const testDataURL = "data:image/png;base64,aGVsbG8="

func testConfig() config.Config {
	return config.Config{
		EnableBlendStage:   true,
		EnableEnhanceStage: false,
		BlendTimeout:       time.Second,
		DescribeTimeout:    time.Second,
		EnhanceTimeout:     time.Second,
		StageMaxRetries:    0,
		StageRetryBaseMs:   1,
	}
}

func waitForTerminal(t *testing.T, repo *fakeRepo, fusionID uint) entity.FusionUpdates {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if updates, ok := repo.lastUpdate(fusionID); ok && updates.Status != nil {
			return updates
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("fusion run did not reach a terminal state in time")
	return entity.FusionUpdates{}
}

// ---------------------------------------------------------------------------

func TestStartFusion(t *testing.T) {
	baseRequest := entity.GenerateFusionRequest{
		HeadName:     "Pikachu",
		BodyName:     "Charizard",
		SourceImage1: testDataURL,
		SourceImage2: testDataURL,
	}

	t.Run("余额不足被拒绝", func(t *testing.T) {
		repo := newFakeRepo(0)
		svc := NewFusionService(repo, &fakeStorage{}, &provider.Set{Blender: &stubBlender{result: testDataURL}}, testConfig())

		_, err := svc.StartFusion(context.Background(), 1, baseRequest)
		if !errors.Is(err, ErrInsufficientCredits) {
			t.Fatalf("expected ErrInsufficientCredits, got %v", err)
		}
	})

	t.Run("缺少来源被拒绝", func(t *testing.T) {
		repo := newFakeRepo(5)
		svc := NewFusionService(repo, &fakeStorage{}, &provider.Set{Blender: &stubBlender{result: testDataURL}}, testConfig())

		_, err := svc.StartFusion(context.Background(), 1, entity.GenerateFusionRequest{HeadName: "Pikachu"})
		if !errors.Is(err, ErrInvalidSources) {
			t.Fatalf("expected ErrInvalidSources, got %v", err)
		}
	})

	t.Run("成功生成扣除一积分", func(t *testing.T) {
		repo := newFakeRepo(5)
		store := &fakeStorage{}
		svc := NewFusionService(repo, store, &provider.Set{Blender: &stubBlender{result: testDataURL}}, testConfig())

		record, err := svc.StartFusion(context.Background(), 1, baseRequest)
		if err != nil {
			t.Fatalf("StartFusion: %v", err)
		}

		updates := waitForTerminal(t, repo, record.ID)
		if *updates.Status != entity.FusionStatusSucceeded {
			t.Fatalf("expected succeeded status, got %s", *updates.Status)
		}
		if updates.Saved == nil || !*updates.Saved {
			t.Fatal("expected artifact to be saved")
		}

		// 扣费发生在记录更新之后，稍作等待
		var debits []entity.DbCreditLedgerEntry
		deadline := time.Now().Add(2 * time.Second)
		for time.Now().Before(deadline) {
			if debits = repo.debitEntries(); len(debits) > 0 {
				break
			}
			time.Sleep(5 * time.Millisecond)
		}
		if len(debits) != 1 {
			t.Fatalf("expected exactly one debit, got %d", len(debits))
		}
		if debits[0].Amount != -1 || debits[0].Reason != entity.CreditReasonGeneration {
			t.Fatalf("unexpected debit entry %+v", debits[0])
		}
		if debits[0].FusionID == nil || *debits[0].FusionID != record.ID {
			t.Fatal("debit entry should reference the fusion record")
		}
	})

	t.Run("降级结果不扣费", func(t *testing.T) {
		repo := newFakeRepo(5)
		svc := NewFusionService(repo, &fakeStorage{}, &provider.Set{
			Blender: &stubBlender{err: &provider.Error{Provider: "stub", StatusCode: 400, Message: "bad input"}},
		}, testConfig())

		record, err := svc.StartFusion(context.Background(), 1, baseRequest)
		if err != nil {
			t.Fatalf("StartFusion: %v", err)
		}

		updates := waitForTerminal(t, repo, record.ID)
		if *updates.Status != entity.FusionStatusFallback {
			t.Fatalf("expected fallback status, got %s", *updates.Status)
		}
		time.Sleep(50 * time.Millisecond)
		if len(repo.debitEntries()) != 0 {
			t.Fatal("fallback run must not debit credits")
		}
	})

	t.Run("存储失败不扣费", func(t *testing.T) {
		repo := newFakeRepo(5)
		svc := NewFusionService(repo, &fakeStorage{fail: true}, &provider.Set{Blender: &stubBlender{result: testDataURL}}, testConfig())

		record, err := svc.StartFusion(context.Background(), 1, baseRequest)
		if err != nil {
			t.Fatalf("StartFusion: %v", err)
		}

		updates := waitForTerminal(t, repo, record.ID)
		if updates.Saved == nil || *updates.Saved {
			t.Fatal("expected saved=false after storage failure")
		}
		time.Sleep(50 * time.Millisecond)
		if len(repo.debitEntries()) != 0 {
			t.Fatal("unsaved result must not debit credits")
		}
	})

	t.Run("描述文本被持久化", func(t *testing.T) {
		repo := newFakeRepo(5)
		cfg := testConfig()
		cfg.EnableEnhanceStage = true
		svc := NewFusionService(repo, &fakeStorage{}, &provider.Set{
			Blender:   &stubBlender{result: testDataURL},
			Describer: &stubDescriber{text: "Body structure: stout biped\nColor palette: orange\nNotable features: flame tail"},
			Enhancer:  &stubEnhancer{result: testDataURL},
		}, cfg)

		record, err := svc.StartFusion(context.Background(), 1, baseRequest)
		if err != nil {
			t.Fatalf("StartFusion: %v", err)
		}

		updates := waitForTerminal(t, repo, record.ID)
		if updates.Description == nil || !strings.Contains(*updates.Description, "stout biped") {
			t.Fatal("expected description to be persisted")
		}
		if len(*updates.StageLog) != 3 {
			t.Fatalf("expected 3 stage log entries, got %d", len(*updates.StageLog))
		}
	})

	t.Run("图鉴来源通过ID解析", func(t *testing.T) {
		repo := newFakeRepo(5)
		repo.pokemons[7] = &entity.DbPokemon{ID: 7, Number: 25, Name: "Pikachu", SpriteURL: testDataURL, IsActive: true}
		repo.pokemons[9] = &entity.DbPokemon{ID: 9, Number: 6, Name: "Charizard", SpriteURL: testDataURL, IsActive: true}
		svc := NewFusionService(repo, &fakeStorage{}, &provider.Set{Blender: &stubBlender{result: testDataURL}}, testConfig())

		record, err := svc.StartFusion(context.Background(), 1, entity.GenerateFusionRequest{
			HeadPokemonID: 7,
			BodyPokemonID: 9,
		})
		if err != nil {
			t.Fatalf("StartFusion: %v", err)
		}
		if record.HeadName != "Pikachu" || record.BodyName != "Charizard" {
			t.Fatalf("unexpected resolved names %q/%q", record.HeadName, record.BodyName)
		}
		if record.FusionName != "Pikaizard" {
			t.Fatalf("unexpected fusion name %q", record.FusionName)
		}
		waitForTerminal(t, repo, record.ID)
	})
}

func TestRunEventsPollingFallback(t *testing.T) {
	repo := newFakeRepo(5)
	svc := NewFusionService(repo, &fakeStorage{}, &provider.Set{Blender: &stubBlender{result: testDataURL}}, testConfig())

	record, err := svc.StartFusion(context.Background(), 1, entity.GenerateFusionRequest{
		HeadName:     "Pikachu",
		BodyName:     "Charizard",
		SourceImage1: testDataURL,
		SourceImage2: testDataURL,
	})
	if err != nil {
		t.Fatalf("StartFusion: %v", err)
	}

	waitForTerminal(t, repo, record.ID)

	deadline := time.Now().Add(2 * time.Second)
	for {
		events, done, found := svc.RunEvents(record.ID)
		if !found {
			t.Fatal("run should be registered")
		}
		if done {
			if len(events) == 0 {
				t.Fatal("expected buffered events")
			}
			last := events[len(events)-1]
			if last.Stage != pipeline.TerminalStage {
				t.Fatalf("expected terminal event last, got %+v", last)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("run did not close in time")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if _, _, found := svc.RunEvents(99999); found {
		t.Fatal("unknown run must not be found")
	}
}
