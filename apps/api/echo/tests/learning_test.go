package tests

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/modelaedu/modela/core/learning"
)

func Test_learningApi_progress(t *testing.T) {
	env := setup(t)
	usr := env.createUser(t, "Ada Lovelace", "ada@test.br", "1001", "pwd12345")
	token := env.getToken(t, usr)

	t.Run("Auth required", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/api/user/1/progress", []byte(`{}`))
		env.app.ServeHTTP(rec, req)
		tt := httpTest{wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("Save partial progress", func(t *testing.T) {
		body := []byte(`{"moduleId":1,"lessonId":1,"lessonTitle":"Aula 01: Introdução à UML","videoCompleted":true}`)
		req, rec := newAuthRequest(http.MethodPost, "/api/user/1/progress", token, body)
		env.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; body: %s", rec.Code, rec.Body.String())
		}

		rows := listProgress(t, env, token)
		if len(rows) != 1 {
			t.Fatalf("progress rows = %d; want 1", len(rows))
		}
		if rows[0]["completed"] != false {
			t.Error("completed should stay false until all three sub-flags are set")
		}
	})

	t.Run("Completion is derived from sub-flags", func(t *testing.T) {
		// client claims completed=false but all three sub-flags are true
		body := []byte(`{"moduleId":1,"lessonId":1,"lessonTitle":"Aula 01: Introdução à UML",` +
			`"videoCompleted":true,"exerciseCompleted":true,"practicalCompleted":true,"completed":false}`)
		req, rec := newAuthRequest(http.MethodPost, "/api/user/1/progress", token, body)
		env.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; body: %s", rec.Code, rec.Body.String())
		}

		rows := listProgress(t, env, token)
		if len(rows) != 1 {
			t.Fatalf("upsert created a second row; rows = %d", len(rows))
		}
		if rows[0]["completed"] != true {
			t.Error("completed should be derived true")
		}
		if rows[0]["completed_at"] == nil {
			t.Error("completed_at should be stamped")
		}
	})

	t.Run("Patch lesson progress", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/api/user/1/progress", token,
			[]byte(`{"moduleId":1,"lessonId":2,"lessonTitle":"Aula 02: O que é um Diagrama de Classes"}`))
		env.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; body: %s", rec.Code, rec.Body.String())
		}

		body := []byte(`{"lessonTitle":"Aula 02: O que é um Diagrama de Classes","exerciseCompleted":true}`)
		req, rec = newAuthRequest(http.MethodPost, "/api/user/1/lesson-progress", token, body)
		env.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; body: %s", rec.Code, rec.Body.String())
		}

		rows := listProgress(t, env, token)
		for _, row := range rows {
			if row["lesson_id"] == float64(2) && row["exercise_completed"] != true {
				t.Error("patch did not set exercise_completed")
			}
		}
	})

	t.Run("Patch unknown lesson still succeeds", func(t *testing.T) {
		body := []byte(`{"lessonTitle":"Aula 99: Fantasma","exerciseCompleted":true}`)
		req, rec := newAuthRequest(http.MethodPost, "/api/user/1/lesson-progress", token, body)
		env.app.ServeHTTP(rec, req)

		tt := httpTest{wantCode: http.StatusOK, wantData: []byte(`{"success":true}`)}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("Empty patch is a no-op", func(t *testing.T) {
		body := []byte(`{"lessonTitle":"Aula 99: Fantasma"}`)
		req, rec := newAuthRequest(http.MethodPost, "/api/user/1/lesson-progress", token, body)
		env.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("code = %v; want %v", rec.Code, http.StatusOK)
		}
	})

	t.Run("Module progress", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/api/user/1/module/1/progress", token)
		env.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; body: %s", rec.Code, rec.Body.String())
		}
	})
}

func listProgress(t *testing.T, env *testEnv, token string) []map[string]interface{} {
	t.Helper()

	req, rec := newAuthRequest(http.MethodGet, "/api/user/1/progress", token)
	env.app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("listing progress: code = %v; body: %s", rec.Code, rec.Body.String())
	}

	var rows []map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &rows); err != nil {
		t.Fatalf("listing progress: %v", err)
	}
	return rows
}

func Test_learningApi_attemptScoring(t *testing.T) {
	env := setup(t)
	usr := env.createUser(t, "Ada Lovelace", "ada@test.br", "1001", "pwd12345")
	token := env.getToken(t, usr)

	attempt := func(score, total, pct int) []byte {
		return marchallObj(t, map[string]interface{}{
			"lessonId": 1, "lessonTitle": "Aula 01", "score": score, "totalQuestions": total, "percentage": pct,
		})
	}

	t.Run("First attempt awards proportional points", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/api/user/1/exercise-attempt", token, attempt(8, 10, 80))
		env.app.ServeHTTP(rec, req)

		tt := httpTest{
			wantCode: http.StatusOK,
			wantData: []byte(`{"success":true,"isFirstAttempt":true,"pointsAwarded":8,"percentage":80}`),
		}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("Second attempt never awards", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/api/user/1/exercise-attempt", token, attempt(10, 10, 100))
		env.app.ServeHTTP(rec, req)

		tt := httpTest{
			wantCode: http.StatusOK,
			wantData: []byte(`{"success":true,"isFirstAttempt":false,"pointsAwarded":0,"percentage":100}`),
		}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("Dashboard counts the perfect retry", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/api/user/1/dashboard", token)
		env.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; body: %s", rec.Code, rec.Body.String())
		}

		body := decodeBody(t, rec)
		exercises, _ := body["exercises"].(map[string]interface{})
		if exercises["completed"] != float64(10) {
			t.Errorf("exercises.completed = %v; want 10", exercises["completed"])
		}
		if exercises["total"] != float64(40) {
			t.Errorf("exercises.total = %v; want 40", exercises["total"])
		}
	})

	t.Run("Total score reflects only the first attempt", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/api/user/1/total-score", token)
		env.app.ServeHTTP(rec, req)

		tt := httpTest{
			wantCode: http.StatusOK,
			wantData: []byte(`{"totalPoints":8,"breakdown":{"exercises":8,"modules":0,"forum":0}}`),
		}
		checkCodeAndData(t, tt, rec)
	})
}

func Test_learningApi_addScore(t *testing.T) {
	env := setup(t)
	usr := env.createUser(t, "Ada Lovelace", "ada@test.br", "1001", "pwd12345")
	token := env.getToken(t, usr)

	body := []byte(`{"scoreType":"module","sourceId":"1","points":50}`)

	tests := []httpTest{
		{
			name: "First grant", body: body, wantCode: http.StatusOK,
			wantData: []byte(`{"success":true,"pointsAdded":50}`),
		},
		{
			name: "Duplicate grant is idempotent", body: body, wantCode: http.StatusOK,
			wantData: []byte(`{"success":true,"pointsAdded":0,"alreadyExists":true}`),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, "/api/user/1/score", token, tt.body)
			env.app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_learningApi_ranking(t *testing.T) {
	env := setup(t)
	ada := env.createUser(t, "Ada Lovelace", "ada@test.br", "1001", "pwd12345")
	bob := env.createUser(t, "Bob Martin", "bob@test.br", "1002", "pwd12345")
	env.createUser(t, "Carl Sagan", "carl@test.br", "1003", "pwd12345")
	env.createUser(t, "Enzo Reis", "enzo@test.br", "1004", "pwd12345")

	ctx := context.Background()
	mustGrant(t, env, ctx, ada.ID, learning.ScoreTypeExercise, "1", 8)
	mustGrant(t, env, ctx, bob.ID, learning.ScoreTypeExercise, "1", 10)
	mustGrant(t, env, ctx, bob.ID, learning.ScoreTypeModule, "1", 50)

	req, rec := newRequest(http.MethodGet, "/api/ranking?limit=10")
	env.app.ServeHTTP(rec, req)

	// users with no points still rank at zero; ties order by id
	tt := httpTest{
		wantCode: http.StatusOK,
		wantData: []byte(`[` +
			`{"userId":2,"nome":"Bob Martin","username":"bob.martin","totalPoints":60},` +
			`{"userId":1,"nome":"Ada Lovelace","username":"ada.lovelace","totalPoints":8},` +
			`{"userId":3,"nome":"Carl Sagan","username":"carl.sagan","totalPoints":0},` +
			`{"userId":4,"nome":"Enzo Reis","username":"enzo.reis","totalPoints":0}]`),
	}
	checkCodeAndData(t, tt, rec)
}

func mustGrant(t *testing.T, env *testEnv, ctx context.Context, userID int64, scoreType, sourceID string, points int) {
	t.Helper()
	if _, err := env.learnSvc.GrantScore(ctx, userID, scoreType, sourceID, points); err != nil {
		t.Fatalf("granting score: %v", err)
	}
}

func Test_learningApi_exerciseState(t *testing.T) {
	env := setup(t)
	usr := env.createUser(t, "Ada Lovelace", "ada@test.br", "1001", "pwd12345")
	token := env.getToken(t, usr)

	t.Run("Round trip", func(t *testing.T) {
		body := []byte(`{"lessonId":1,"lessonTitle":"Aula 01","isCompleted":true,"score":8,` +
			`"totalQuestions":10,"percentage":80,"pointsAwarded":8,"isFirstAttempt":true,` +
			`"feedbackData":{"q1":"ok","q2":"wrong"}}`)
		req, rec := newAuthRequest(http.MethodPost, "/api/user/1/exercise-state", token, body)
		env.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; body: %s", rec.Code, rec.Body.String())
		}

		req, rec = newAuthRequest(http.MethodGet, "/api/user/1/exercise-state/1", token)
		env.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; body: %s", rec.Code, rec.Body.String())
		}

		state, _ := decodeBody(t, rec)["state"].(map[string]interface{})
		feedback, _ := state["feedbackData"].(map[string]interface{})
		if feedback["q1"] != "ok" || feedback["q2"] != "wrong" {
			t.Errorf("feedbackData = %v; want the saved blob back", state["feedbackData"])
		}
	})

	t.Run("Corrupt feedback degrades to empty object", func(t *testing.T) {
		now := time.Now().UTC()
		err := env.learnRepo.UpsertState(context.Background(), learning.ExerciseState{
			UserID:       usr.ID,
			LessonID:     2,
			LessonTitle:  "Aula 02",
			FeedbackData: []byte(`{broken`),
			CreatedAt:    now,
			UpdatedAt:    now,
		})
		if err != nil {
			t.Fatalf("seeding corrupt state: %v", err)
		}

		req, rec := newAuthRequest(http.MethodGet, "/api/user/1/exercise-state/2", token)
		env.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; body: %s", rec.Code, rec.Body.String())
		}

		state, _ := decodeBody(t, rec)["state"].(map[string]interface{})
		feedback, ok := state["feedbackData"].(map[string]interface{})
		if !ok || len(feedback) != 0 {
			t.Errorf("feedbackData = %v; want {}", state["feedbackData"])
		}
	})

	t.Run("Missing state loads as null, not an error", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/api/user/1/exercise-state/9", token)
		env.app.ServeHTTP(rec, req)

		tt := httpTest{wantCode: http.StatusOK, wantData: []byte(`{"success":true,"state":null}`)}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("Clear then load is a null state", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/api/user/1/exercise-state/1", token)
		env.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; body: %s", rec.Code, rec.Body.String())
		}

		req, rec = newAuthRequest(http.MethodGet, "/api/user/1/exercise-state/1", token)
		env.app.ServeHTTP(rec, req)

		tt := httpTest{wantCode: http.StatusOK, wantData: []byte(`{"success":true,"state":null}`)}
		checkCodeAndData(t, tt, rec)
	})
}
