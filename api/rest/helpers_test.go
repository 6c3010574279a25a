package rest_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fitquest/server/api/rest"
	"github.com/fitquest/server/config"
	"github.com/fitquest/server/game/clock"
	"github.com/fitquest/server/game/quest"
	"github.com/fitquest/server/game/requirement"
	"github.com/fitquest/server/game/rotation"
	"github.com/fitquest/server/game/streak"
	"github.com/fitquest/server/game/target"
	"github.com/fitquest/server/hook"
	"github.com/fitquest/server/jobs"
	mw "github.com/fitquest/server/middleware"
	"github.com/fitquest/server/model"
	"github.com/fitquest/server/scheduler"
	"github.com/fitquest/server/testutil"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	testSecret   = "test-jwt-secret-32bytes-padded!!"
	testAdminKey = "admin-key"
)

var now = time.Date(2026, 6, 10, 12, 0, 0, 0, time.UTC)

type firstRand struct{}

func (firstRand) Float64() float64 { return 0 }
func (firstRand) IntN(int) int     { return 0 }

type env struct {
	r     *gin.Engine
	db    *gorm.DB
	user  *model.User
	token string
	steps *model.QuestTemplate
	yoga  *model.QuestTemplate
	sched *scheduler.Scheduler
}

func newEnv(t *testing.T) *env {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := testutil.SetupTestDB(t)
	resolver := clock.NewResolver(clock.NewFake(now), "UTC")
	hooks := hook.NewCenter(zap.NewNop())

	cal := target.NewCalibrator(db, resolver, zap.NewNop(), target.WithHooks(hooks))
	sel := rotation.NewSelector(db, resolver, rotation.DefaultTables(), firstRand{}, zap.NewNop())
	streaks := streak.NewService(db, testutil.SetupTestCache(t), hooks, resolver, 0, zap.NewNop())
	streaks.RegisterHooks(hooks)
	mgr := quest.NewManager(db, resolver, cal, sel, hooks, nil, zap.NewNop())

	sched := scheduler.New(zap.NewNop())
	t.Cleanup(sched.Stop)
	job := jobs.NewAdaptationJob(db, cal, testutil.SetupTestCache(t), nil, config.SchedulerConfig{}, zap.NewNop())
	sched.AddTicker(jobs.AdaptationTaskName, time.Hour, job.Task())

	r := gin.New()
	r.Use(mw.TraceID(), mw.Recovery(zap.NewNop()))
	rest.Register(r, rest.Handlers{
		Quests:  rest.NewQuestHandler(mgr, sel),
		Targets: rest.NewTargetHandler(cal),
		Streaks: rest.NewStreakHandler(streaks),
		Admin:   rest.NewAdminHandler(sched, job, zap.NewNop()),
	}, testSecret, testAdminKey, nil)

	e := &env{r: r, db: db, sched: sched}
	e.user = testutil.SeedUser(t, db, now.AddDate(0, 0, -2))
	e.steps = testutil.SeedTemplate(t, db, "core_steps",
		requirement.Numeric{Metric: target.MetricSteps, Value: 10000}, testutil.TemplateOpts{IsCore: true, BaseXP: 100})
	e.yoga = testutil.SeedTemplate(t, db, "bonus_yoga",
		requirement.Numeric{Metric: "yoga_minutes", Value: 20},
		testutil.TemplateOpts{BaseXP: 40, Stat: "AGI", AllowPartial: true, MinPartialPercent: 50})
	tok, err := mw.GenerateToken(e.user.ID, testSecret, time.Hour)
	require.NoError(t, err)
	e.token = tok
	return e
}

func (e *env) do(method, path string, body interface{}) *httptest.ResponseRecorder {
	return e.doWith(method, path, body, map[string]string{"Authorization": "Bearer " + e.token})
}

func (e *env) doWith(method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	var b []byte
	if body != nil {
		b, _ = json.Marshal(body)
	}
	req := httptest.NewRequestWithContext(context.Background(), method, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	e.r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), "body: %s", w.Body.String())
	return out
}

func statusOK(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	require.Equal(t, want, w.Code, "body: %s", w.Body.String())
}
