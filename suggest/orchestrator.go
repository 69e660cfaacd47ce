package suggest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"mealsuggest"
	"mealsuggest/llm"
	"mealsuggest/portion"
	"mealsuggest/store"

	"github.com/google/uuid"
)

// generationBackend is the slice of the llm package this orchestrator needs.
type generationBackend interface {
	Generate(ctx context.Context, req llm.GenerateRequest) (json.RawMessage, error)
}

// profileProvider supplies the physiological profile for new sessions.
type profileProvider interface {
	Load(ctx context.Context, userID string) (*mealsuggest.UserProfile, error)
}

// dailyTargets resolves a user's daily calorie target, cached or computed.
type dailyTargets interface {
	DailyTarget(ctx context.Context, userID string, profile *mealsuggest.UserProfile) (float64, error)
}

// Defaults applied when the backend omits numeric nutrition fields. Partial
// nutrition data is still usable; a zero macro is not.
const (
	defaultProteinGrams = 15.0
	defaultCarbsGrams   = 20.0
	defaultFatGrams     = 10.0
	defaultConfidence   = 0.5
)

// Orchestrator resolves a session and runs the three-phase generation
// protocol against two backend pools.
type Orchestrator struct {
	backend  generationBackend
	store    store.Store
	profiles profileProvider
	targets  dailyTargets
	logger   mealsuggest.GenerationLogger
	cfg      mealsuggest.PipelineConfig

	now   func() time.Time
	newID func() string
}

// NewOrchestrator initializes a new orchestrator. logger may be nil.
func NewOrchestrator(backend generationBackend, st store.Store, profiles profileProvider, targets dailyTargets, cfg mealsuggest.PipelineConfig, logger mealsuggest.GenerationLogger) *Orchestrator {
	if logger == nil {
		logger = mealsuggest.NewNoOpGenerationLogger()
	}
	return &Orchestrator{
		backend:  backend,
		store:    st,
		profiles: profiles,
		targets:  targets,
		logger:   logger,
		cfg:      cfg,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// Generate resolves or creates a session for the input and produces up to
// three meal suggestions.
func (o *Orchestrator) Generate(ctx context.Context, in mealsuggest.GenerateInput) (*mealsuggest.Session, []mealsuggest.MealSuggestion, error) {
	if o.backend == nil {
		return nil, nil, mealsuggest.ErrMissingBackend
	}

	slog.Info("ORCHESTRATOR: Starting generation",
		"user_id", in.UserID,
		"meal_category", in.MealCategory,
		"session_id", in.SessionID,
		"language", in.Language,
	)

	session, preexisting := o.resolveSession(ctx, in)
	if session == nil {
		var err error
		session, err = o.newSession(ctx, in)
		if err != nil {
			return nil, nil, err
		}
	}

	suggestions, err := o.run(ctx, session)
	if err != nil {
		return nil, nil, err
	}

	o.persist(ctx, session, suggestions, preexisting)
	return session, suggestions, nil
}

// Regenerate reruns the pipeline against an existing session, marking the
// given suggestions rejected first. The session's accumulated names keep the
// new round from repeating anything already shown.
func (o *Orchestrator) Regenerate(ctx context.Context, userID, sessionID string, excludeIDs []string) (*mealsuggest.Session, []mealsuggest.MealSuggestion, error) {
	if o.backend == nil {
		return nil, nil, mealsuggest.ErrMissingBackend
	}

	slog.Info("ORCHESTRATOR: Starting regeneration", "user_id", userID, "session_id", sessionID, "exclude_count", len(excludeIDs))

	session, err := o.store.GetSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil, mealsuggest.ErrSessionNotFound
		}
		return nil, nil, fmt.Errorf("failed to load session: %w", err)
	}
	if !session.OwnedBy(userID) || session.Expired(o.now()) {
		return nil, nil, mealsuggest.ErrSessionNotFound
	}

	for _, id := range excludeIDs {
		suggestion, err := o.store.GetSuggestion(ctx, id)
		if err != nil {
			slog.Warn("ORCHESTRATOR: Excluded suggestion not found", "suggestion_id", id, "error", err)
			continue
		}
		if suggestion.SessionID != session.ID {
			slog.Warn("ORCHESTRATOR: Excluded suggestion belongs to another session", "suggestion_id", id)
			continue
		}
		suggestion.Status = mealsuggest.StatusRejected
		if err := o.store.UpdateSuggestion(ctx, suggestion); err != nil {
			slog.Warn("ORCHESTRATOR: Failed to mark suggestion rejected", "suggestion_id", id, "error", err)
		}
	}

	suggestions, err := o.run(ctx, session)
	if err != nil {
		return nil, nil, err
	}

	o.persist(ctx, session, suggestions, true)
	return session, suggestions, nil
}

// resolveSession returns the stored session when the id is present, live, and
// owned by the caller. Anything else degrades to session creation rather than
// failing the request.
func (o *Orchestrator) resolveSession(ctx context.Context, in mealsuggest.GenerateInput) (*mealsuggest.Session, bool) {
	if in.SessionID == "" {
		return nil, false
	}

	session, err := o.store.GetSession(ctx, in.SessionID)
	if err != nil {
		slog.Info("ORCHESTRATOR: Session unusable, creating fresh", "session_id", in.SessionID, "error", err)
		return nil, false
	}
	if !session.OwnedBy(in.UserID) {
		slog.Info("ORCHESTRATOR: Session owned by another user, creating fresh", "session_id", in.SessionID)
		return nil, false
	}
	if session.Expired(o.now()) {
		slog.Info("ORCHESTRATOR: Session expired, creating fresh", "session_id", in.SessionID)
		return nil, false
	}
	return session, true
}

// newSession sizes a portion envelope from the user's profile and daily
// target and builds a fresh 4-hour session.
func (o *Orchestrator) newSession(ctx context.Context, in mealsuggest.GenerateInput) (*mealsuggest.Session, error) {
	if o.profiles == nil {
		return nil, mealsuggest.ErrMissingProfileProvider
	}

	profile, err := o.profiles.Load(ctx, in.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load profile for %s: %w", in.UserID, err)
	}

	daily, err := o.targets.DailyTarget(ctx, in.UserID, profile)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve daily target: %w", err)
	}

	servings := in.Servings
	if servings == 0 {
		servings = 1
	}
	target, err := portion.Target(in.PortionCategory, daily, profile.MealsPerDay, servings)
	if err != nil {
		return nil, fmt.Errorf("failed to compute portion target: %w", err)
	}

	language := in.Language
	if language == "" {
		language = mealsuggest.WorkingLanguage
	}

	now := o.now()
	session := &mealsuggest.Session{
		ID:                 o.newID(),
		UserID:             in.UserID,
		MealCategory:       in.MealCategory,
		PortionCategory:    in.PortionCategory,
		TargetCalories:     target.TargetCalories,
		Ingredients:        in.Ingredients,
		CookingTimeMinutes: in.CookingTimeMinutes,
		Language:           language,
		DietaryPreferences: profile.DietaryPreferences,
		Allergies:          profile.Allergies,
		CreatedAt:          now,
		ExpiresAt:          now.Add(mealsuggest.SessionTTL),
	}

	slog.Info("ORCHESTRATOR: Created session",
		"session_id", session.ID,
		"user_id", session.UserID,
		"target_calories", session.TargetCalories,
		"expires_at", session.ExpiresAt,
	)
	return session, nil
}

// run executes the three phases for a resolved session.
func (o *Orchestrator) run(ctx context.Context, session *mealsuggest.Session) ([]mealsuggest.MealSuggestion, error) {
	names, err := o.generateNames(ctx, session)
	if err != nil {
		return nil, err
	}

	suggestions, err := o.generateRecipes(ctx, session, names)
	if err != nil {
		return nil, err
	}

	o.translate(ctx, session, suggestions)
	return suggestions, nil
}

// generateNames runs Phase 1: one schema-constrained call for candidateCount
// names, deduplicated case-insensitively. Fewer than minUniqueNames unique
// names is fatal; this phase is never retried.
func (o *Orchestrator) generateNames(ctx context.Context, session *mealsuggest.Session) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, o.cfg.NameTimeout)
	defer cancel()

	start := o.now()
	raw, err := o.backend.Generate(ctx, llm.GenerateRequest{
		Prompt:       buildNamesPrompt(session),
		System:       namesSystemPrompt,
		OutputFormat: "json",
		OutputSchema: namesSchema(),
		Pool:         llm.PoolA,
	})
	if err != nil {
		o.logPhase(mealsuggest.PhaseLog{
			Phase:      mealsuggest.PhaseNames,
			Pool:       string(llm.PoolA),
			Attempt:    1,
			Timestamp:  start,
			DurationMS: time.Since(start).Milliseconds(),
			Error:      err.Error(),
		})
		return nil, mealsuggest.NewGenerationError(mealsuggest.PhaseNames, err)
	}

	var payload namesPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, mealsuggest.NewGenerationError(mealsuggest.PhaseNames, fmt.Errorf("malformed name payload: %w", err))
	}

	names := dedupeNames(payload.Names)

	// Enforce the exclusion constraint even when the backend ignores it: a
	// name already shown in this session never comes back.
	kept := names[:0]
	for _, name := range names {
		if session.HasShownName(name) {
			slog.Info("ORCHESTRATOR: Dropping already-shown candidate", "session_id", session.ID, "name", name)
			continue
		}
		kept = append(kept, name)
	}
	names = kept

	o.logPhase(mealsuggest.PhaseLog{
		Phase:          mealsuggest.PhaseNames,
		Pool:           string(llm.PoolA),
		Attempt:        1,
		Timestamp:      start,
		DurationMS:     time.Since(start).Milliseconds(),
		CandidateCount: len(names),
	})
	slog.Info("ORCHESTRATOR: Name candidates", "session_id", session.ID, "requested", candidateCount, "unique", len(names))

	if len(names) < minUniqueNames {
		return nil, mealsuggest.NewGenerationError(mealsuggest.PhaseNames,
			fmt.Errorf("%w: %d unique names of %d required", mealsuggest.ErrEnumeration, len(names), minUniqueNames))
	}
	return names, nil
}

type recipeResult struct {
	suggestion mealsuggest.MealSuggestion
	err        error
}

// generateRecipes runs Phase 2: one concurrent recipe call per candidate
// name, spread across both pools, each with a single alternate-pool retry.
// The first resultCount successes win and the rest are cancelled.
func (o *Orchestrator) generateRecipes(ctx context.Context, session *mealsuggest.Session, names []string) ([]mealsuggest.MealSuggestion, error) {
	fanCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make(chan recipeResult, len(names))
	for i, name := range names {
		go func(index int, name string) {
			results <- o.generateRecipe(fanCtx, session, name, llm.PoolFor(index))
		}(i, name)
	}

	var suggestions []mealsuggest.MealSuggestion
	failures := 0
	for range names {
		res := <-results
		if res.err != nil {
			failures++
			continue
		}
		suggestions = append(suggestions, res.suggestion)
		if len(suggestions) == resultCount {
			// Enough winners; stragglers are cancelled and discarded.
			cancel()
			break
		}
	}

	switch {
	case len(suggestions) >= resultCount:
		return suggestions[:resultCount], nil
	case len(suggestions) >= o.cfg.MinAcceptable:
		slog.Warn("ORCHESTRATOR: Degraded result, proceeding with partial set",
			"session_id", session.ID,
			"succeeded", len(suggestions),
			"failed", failures,
			"wanted", resultCount,
		)
		return suggestions, nil
	default:
		return nil, mealsuggest.NewGenerationError(mealsuggest.PhaseRecipes,
			fmt.Errorf("%w: %d of %d attempts succeeded, minimum is %d", mealsuggest.ErrInsufficientResults, len(suggestions), len(names), o.cfg.MinAcceptable))
	}
}

// generateRecipe attempts one recipe on the assigned pool, then exactly once
// more on the alternate pool. Retrying the same pool would compound a
// rate-limit failure.
func (o *Orchestrator) generateRecipe(ctx context.Context, session *mealsuggest.Session, name string, pool llm.Pool) recipeResult {
	suggestion, err := o.recipeAttempt(ctx, session, name, pool, 1)
	if err == nil {
		return recipeResult{suggestion: suggestion}
	}
	if ctx.Err() != nil {
		return recipeResult{err: ctx.Err()}
	}

	slog.Info("ORCHESTRATOR: Retrying recipe on alternate pool", "name", name, "pool", string(pool.Alternate()), "error", err)
	suggestion, err = o.recipeAttempt(ctx, session, name, pool.Alternate(), 2)
	if err != nil {
		return recipeResult{err: err}
	}
	return recipeResult{suggestion: suggestion}
}

func (o *Orchestrator) recipeAttempt(ctx context.Context, session *mealsuggest.Session, name string, pool llm.Pool, attempt int) (mealsuggest.MealSuggestion, error) {
	ctx, cancel := context.WithTimeout(ctx, o.cfg.RecipeTimeout)
	defer cancel()

	start := o.now()
	raw, err := o.backend.Generate(ctx, llm.GenerateRequest{
		Prompt:       buildRecipePrompt(session, name),
		System:       recipeSystemPrompt,
		OutputFormat: "json",
		OutputSchema: recipeSchema(),
		Pool:         pool,
	})
	o.logPhase(mealsuggest.PhaseLog{
		Phase:      mealsuggest.PhaseRecipes,
		Pool:       string(pool),
		Attempt:    attempt,
		Timestamp:  start,
		DurationMS: time.Since(start).Milliseconds(),
		Error:      errString(err),
	})
	if err != nil {
		return mealsuggest.MealSuggestion{}, err
	}

	var payload recipePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return mealsuggest.MealSuggestion{}, fmt.Errorf("malformed recipe payload for %q: %w", name, err)
	}

	suggestion := o.buildSuggestion(session, name, payload)
	if !suggestion.IsValid() {
		return mealsuggest.MealSuggestion{}, fmt.Errorf("structurally invalid recipe for %q: %d ingredients, %d steps", name, len(payload.Ingredients), len(payload.Steps))
	}
	return suggestion, nil
}

// buildSuggestion converts a parsed recipe into a suggestion owned by the
// session, defaulting any numeric fields the backend omitted.
func (o *Orchestrator) buildSuggestion(session *mealsuggest.Session, name string, payload recipePayload) mealsuggest.MealSuggestion {
	macros := payload.Macros
	if macros.Calories <= 0 {
		macros.Calories = session.TargetCalories
	}
	if macros.Protein <= 0 {
		macros.Protein = defaultProteinGrams
	}
	if macros.Carbs <= 0 {
		macros.Carbs = defaultCarbsGrams
	}
	if macros.Fat <= 0 {
		macros.Fat = defaultFatGrams
	}

	prepTime := payload.PrepTimeMinutes
	if prepTime <= 0 {
		prepTime = session.CookingTimeMinutes
	}

	return mealsuggest.MealSuggestion{
		ID:              o.newID(),
		SessionID:       session.ID,
		UserID:          session.UserID,
		Name:            name,
		Description:     payload.Description,
		MealCategory:    session.MealCategory,
		Macros:          macros,
		Ingredients:     payload.Ingredients,
		Steps:           payload.Steps,
		PrepTimeMinutes: prepTime,
		Confidence:      defaultConfidence,
		Status:          mealsuggest.StatusShown,
		GeneratedAt:     o.now(),
	}
}

// translate runs Phase 3 in place when the session wants a language other
// than the pipeline's working one. Failure never fails the request; nutrition
// correctness outranks localization.
func (o *Orchestrator) translate(ctx context.Context, session *mealsuggest.Session, suggestions []mealsuggest.MealSuggestion) {
	if session.Language == "" || session.Language == mealsuggest.WorkingLanguage {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, o.cfg.TranslateTimeout)
	defer cancel()

	batch := newTranslationBatch(suggestions)
	prompt, err := buildTranslatePrompt(batch, session.Language)
	if err != nil {
		slog.Warn("ORCHESTRATOR: Skipping translation", "session_id", session.ID, "error", err)
		return
	}

	start := o.now()
	raw, err := o.backend.Generate(ctx, llm.GenerateRequest{
		Prompt:       prompt,
		System:       translateSystemPrompt,
		OutputFormat: "json",
		OutputSchema: translationSchema(),
		Pool:         llm.PoolA,
	})
	o.logPhase(mealsuggest.PhaseLog{
		Phase:      mealsuggest.PhaseTranslate,
		Pool:       string(llm.PoolA),
		Attempt:    1,
		Timestamp:  start,
		DurationMS: time.Since(start).Milliseconds(),
		Error:      errString(err),
	})
	if err != nil {
		slog.Warn("ORCHESTRATOR: Translation failed, returning untranslated suggestions", "session_id", session.ID, "language", session.Language, "error", err)
		return
	}

	var translated translationBatch
	if err := json.Unmarshal(raw, &translated); err != nil {
		slog.Warn("ORCHESTRATOR: Malformed translation payload, returning untranslated suggestions", "session_id", session.ID, "error", err)
		return
	}
	if !translated.apply(suggestions) {
		slog.Warn("ORCHESTRATOR: Translation shape mismatch, returning untranslated suggestions", "session_id", session.ID)
	}
}

// persist records the round in the session accumulators and writes both the
// session and its suggestions. Persistence failure after a successful
// generation never erases the user-facing result, but it is lost state and is
// logged loudly.
func (o *Orchestrator) persist(ctx context.Context, session *mealsuggest.Session, suggestions []mealsuggest.MealSuggestion, preexisting bool) {
	ids := make([]string, 0, len(suggestions))
	names := make([]string, 0, len(suggestions))
	for _, s := range suggestions {
		ids = append(ids, s.ID)
		names = append(names, s.Name)
	}
	session.AppendShown(ids, names)

	var err error
	if preexisting {
		err = o.store.UpdateSession(ctx, session)
	} else {
		err = o.store.SaveSession(ctx, session)
	}
	if err != nil {
		slog.Error("ORCHESTRATOR: Failed to persist session, state lost", "session_id", session.ID, "error", err)
	}

	if err := o.store.SaveSuggestions(ctx, suggestions); err != nil {
		slog.Error("ORCHESTRATOR: Failed to persist suggestions, state lost", "session_id", session.ID, "count", len(suggestions), "error", err)
	}
}

func (o *Orchestrator) logPhase(entry mealsuggest.PhaseLog) {
	if err := o.logger.LogPhase(entry); err != nil {
		slog.Warn("ORCHESTRATOR: Failed to write phase log", "phase", entry.Phase, "error", err)
	}
}

// dedupeNames removes case-insensitive duplicates, keeping first-seen casing
// and order.
func dedupeNames(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		key := strings.ToLower(name)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, name)
	}
	return out
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
