package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	. "github.com/modelaedu/modela/apps/api/echo"
	"github.com/modelaedu/modela/core"
	"github.com/modelaedu/modela/core/forum"
	"github.com/modelaedu/modela/core/learning"
	"github.com/modelaedu/modela/core/user"
	emailsvc "github.com/modelaedu/modela/services/email"
	"github.com/modelaedu/modela/storage/database"
)

var errMissingToken = httpErr{Success: false, Message: "missing or malformed jwt"}

type testEnv struct {
	app       Server
	conf      *core.Config
	usrRepo   *database.UserRepository
	learnRepo *database.LearningRepository
	forumRepo *database.ForumRepository
	usrSvc    *user.Service
	learnSvc  *learning.Service
	forumSvc  *forum.Service
}

// setup builds a full server against a fresh in-memory database.
func setup(t *testing.T) *testEnv {
	t.Helper()

	conf := newTestConfig()

	db, err := database.Open(conf)
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err = database.Migrate(db, conf.Database.Engine); err != nil {
		t.Fatalf("migrating test database: %v", err)
	}

	store := database.NewStore(db, conf.Database.Engine)
	logger := testLogger{}
	mailSvc := emailsvc.NewConsoleServiceMock(conf)

	usrRepo := database.NewUserRepository(store)
	learnRepo := database.NewLearningRepository(store)
	forumRepo := database.NewForumRepository(store)

	usrSvc := user.NewService(usrRepo, mailSvc, logger, conf)
	learnSvc := learning.NewService(learnRepo, learning.DefaultCatalog(), logger)
	forumSvc := forum.NewService(forumRepo, learnSvc, logger)

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)

	app := NewServer(ServerDeps{
		Conf:           conf,
		Logger:         logger,
		DB:             db,
		UserSvc:        usrSvc,
		LearningSvc:    learnSvc,
		ForumSvc:       forumSvc,
		Validate:       validate,
		Translator:     translator,
		DisableReqLogs: true,
	})

	return &testEnv{
		app:       app,
		conf:      conf,
		usrRepo:   usrRepo,
		learnRepo: learnRepo,
		forumRepo: forumRepo,
		usrSvc:    usrSvc,
		learnSvc:  learnSvc,
		forumSvc:  forumSvc,
	}
}

func newTestConfig() *core.Config {
	return &core.Config{
		TestMode:  true,
		Env:       "TEST",
		AppName:   "Modela",
		SecretKey: "test-secret-key",
		Server: core.ServerConfig{
			JWTExpirationDelta: time.Hour,
		},
		Database: core.DatabaseConfig{
			Engine: "sqlite",
			Path:   ":memory:",
		},
	}
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

// createUser registers an account straight through the repository.
func (env *testEnv) createUser(t *testing.T, nome, email, matricula, senha string) user.User {
	t.Helper()

	usr := user.User{
		Nome:      nome,
		Email:     email,
		Matricula: matricula,
		Username:  user.GenerateUsername(nome),
		CreatedAt: time.Now().UTC(),
	}
	if err := usr.SetPassword(senha); err != nil {
		t.Fatalf("createUser(): %v", err)
	}
	usr, err := env.usrRepo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("createUser(): %v", err)
	}
	return usr
}

func (env *testEnv) getToken(t *testing.T, usr user.User) string {
	t.Helper()

	token, err := GenerateToken(GetUserClaims(usr, env.conf), env.conf)
	if err != nil {
		t.Fatalf("getToken(): %v", err)
	}
	return token
}

type testLogger struct{}

func (testLogger) Enable(bool)                  {}
func (testLogger) Debug(string, ...interface{}) {}
func (testLogger) Info(string, ...interface{})  {}
func (testLogger) Warn(string, ...interface{})  {}
func (testLogger) Error(string, ...interface{}) {}
func (testLogger) Fatal(string, ...interface{}) {}

type httpErr struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj(): %v", err)
	}
	return data
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()

	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

// decodeBody unmarshals the response into a generic map for spot checks.
func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()

	body := make(map[string]interface{})
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decodeBody(): %v; body: %s", err, rec.Body.String())
	}
	return body
}
