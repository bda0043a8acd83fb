package tests

import (
	"encoding/json"
	"net/http"
	"testing"
)

func Test_forumApi_topicsAndReplies(t *testing.T) {
	env := setup(t)
	ada := env.createUser(t, "Ada Lovelace", "ada@test.br", "1001", "pwd12345")
	bob := env.createUser(t, "Bob Martin", "bob@test.br", "1002", "pwd12345")
	adaToken := env.getToken(t, ada)
	bobToken := env.getToken(t, bob)

	t.Run("Auth required to post", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/api/forum/topic", []byte(`{}`))
		env.app.ServeHTTP(rec, req)
		tt := httpTest{wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("Cannot post as somebody else", func(t *testing.T) {
		body := []byte(`{"userId":2,"title":"Dúvida","content":"Como modelar herança?"}`)
		req, rec := newAuthRequest(http.MethodPost, "/api/forum/topic", adaToken, body)
		env.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Errorf("code = %v; want %v", rec.Code, http.StatusForbidden)
		}
	})

	t.Run("Create topic awards points", func(t *testing.T) {
		body := []byte(`{"userId":1,"title":"Dúvida sobre herança","content":"Como modelar herança em UML?","category":"uml"}`)
		req, rec := newAuthRequest(http.MethodPost, "/api/forum/topic", adaToken, body)
		env.app.ServeHTTP(rec, req)

		tt := httpTest{
			wantCode: http.StatusCreated,
			wantData: []byte(`{"success":true,"topicId":1,"pointsAwarded":5}`),
		}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("Create reply awards points", func(t *testing.T) {
		body := []byte(`{"userId":2,"topicId":1,"content":"Use uma seta de generalização."}`)
		req, rec := newAuthRequest(http.MethodPost, "/api/forum/reply", bobToken, body)
		env.app.ServeHTTP(rec, req)

		tt := httpTest{
			wantCode: http.StatusCreated,
			wantData: []byte(`{"success":true,"replyId":1,"pointsAwarded":2}`),
		}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("Reply to unknown topic is 404", func(t *testing.T) {
		body := []byte(`{"userId":2,"topicId":99,"content":"eco"}`)
		req, rec := newAuthRequest(http.MethodPost, "/api/forum/reply", bobToken, body)
		env.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusNotFound {
			t.Errorf("code = %v; want %v", rec.Code, http.StatusNotFound)
		}
	})

	t.Run("List topics includes author and reply count", func(t *testing.T) {
		req, rec := newRequest(http.MethodGet, "/api/forum/topics")
		env.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; body: %s", rec.Code, rec.Body.String())
		}

		var topics []map[string]interface{}
		if err := json.Unmarshal(rec.Body.Bytes(), &topics); err != nil {
			t.Fatalf("decoding topics: %v", err)
		}
		if len(topics) != 1 {
			t.Fatalf("topics = %d; want 1", len(topics))
		}
		if topics[0]["userName"] != "Ada Lovelace" {
			t.Errorf("userName = %v; want Ada Lovelace", topics[0]["userName"])
		}
		if topics[0]["repliesCount"] != float64(1) {
			t.Errorf("repliesCount = %v; want 1", topics[0]["repliesCount"])
		}
	})

	t.Run("Topic detail carries replies", func(t *testing.T) {
		req, rec := newRequest(http.MethodGet, "/api/forum/topic/1")
		env.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; body: %s", rec.Code, rec.Body.String())
		}

		body := decodeBody(t, rec)
		replies, _ := body["replies"].([]interface{})
		if len(replies) != 1 {
			t.Fatalf("replies = %d; want 1", len(replies))
		}
		reply, _ := replies[0].(map[string]interface{})
		if reply["userName"] != "Bob Martin" {
			t.Errorf("reply userName = %v; want Bob Martin", reply["userName"])
		}
	})

	t.Run("Unknown topic detail is 404", func(t *testing.T) {
		req, rec := newRequest(http.MethodGet, "/api/forum/topic/99")
		env.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusNotFound {
			t.Errorf("code = %v; want %v", rec.Code, http.StatusNotFound)
		}
	})

	t.Run("Participation shows up in the total score", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/api/user/1/total-score", adaToken)
		env.app.ServeHTTP(rec, req)

		tt := httpTest{
			wantCode: http.StatusOK,
			wantData: []byte(`{"totalPoints":5,"breakdown":{"exercises":0,"modules":0,"forum":5}}`),
		}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("Forum ranking puts topics over replies", func(t *testing.T) {
		// pile more replies on Bob; they never outrank Ada's topic
		for _, content := range []string{"Agregação também funciona.", "Veja a aula 02."} {
			body := marchallObj(t, map[string]interface{}{"userId": 2, "topicId": 1, "content": content})
			req, rec := newAuthRequest(http.MethodPost, "/api/forum/reply", bobToken, body)
			env.app.ServeHTTP(rec, req)
			if rec.Code != http.StatusCreated {
				t.Fatalf("code = %v; body: %s", rec.Code, rec.Body.String())
			}
		}

		req, rec := newRequest(http.MethodGet, "/api/ranking/forum")
		env.app.ServeHTTP(rec, req)

		tt := httpTest{
			wantCode: http.StatusOK,
			wantData: []byte(`[` +
				`{"userId":1,"nome":"Ada Lovelace","username":"ada.lovelace","topicsCount":1,"repliesCount":0},` +
				`{"userId":2,"nome":"Bob Martin","username":"bob.martin","topicsCount":0,"repliesCount":3}]`),
		}
		checkCodeAndData(t, tt, rec)
	})
}
