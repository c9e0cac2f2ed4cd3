package controllers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/plumehq/plume/config"
	"github.com/plumehq/plume/models"
	"github.com/plumehq/plume/routes"
	"github.com/plumehq/plume/utils"
)

func TestMain(m *testing.M) {
	os.Setenv("JWT_SECRET", "test-secret")
	os.Setenv("RATE_LIMIT_PER_MINUTE", "100000")
	// point at an unused port so every cache lookup is a miss
	os.Setenv("REDIS_PORT", "63790")
	os.Setenv("GIN_MODE", "test")
	gin.SetMode(gin.TestMode)
	config.Load()

	utils.SetStorage(&memStorage{objects: map[string][]byte{}})

	os.Exit(m.Run())
}

// memStorage keeps uploads in memory so tests never touch disk or S3.
type memStorage struct {
	objects map[string][]byte
}

func (m *memStorage) Save(_ context.Context, objectName string, data []byte, _ string) (string, error) {
	m.objects[objectName] = data
	return "https://cdn.test/" + objectName, nil
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Post{},
		&models.Tag{},
		&models.Comment{},
		&models.Community{},
		&models.Like{},
		&models.SavedPost{},
		&models.Follow{},
		&models.Report{},
		&models.AdminUser{},
		&models.AdminSession{},
		&models.AdminLog{},
		&models.SiteSetting{},
	))
	return db
}

func newTestApp(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	return routes.SetupRouter(db), db
}

func perform(r http.Handler, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			panic(err)
		}
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func performMultipart(r http.Handler, method, path string, build func(*multipart.Writer), token string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	build(mw)
	mw.Close()

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// textprotoHeader builds a multipart part header with an explicit content
// type, which mw.CreateFormFile cannot set.
func textprotoHeader(field, filename, contentType string) textproto.MIMEHeader {
	h := textproto.MIMEHeader{}
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, field, filename))
	h.Set("Content-Type", contentType)
	return h
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), "body: %s", w.Body.String())
	return out
}

func errorMessage(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	msg, _ := decode(t, w)["error"].(string)
	return msg
}

// registerUser creates an account through the public endpoint and returns
// the issued token together with the user ID.
func registerUser(t *testing.T, r http.Handler, username string) (string, uint) {
	t.Helper()
	w := perform(r, http.MethodPost, "/auth/register", gin.H{
		"username":        username,
		"email":           username + "@example.com",
		"password":        "secret123",
		"confirmPassword": "secret123",
	}, "")
	require.Equal(t, http.StatusCreated, w.Code, "body: %s", w.Body.String())

	body := decode(t, w)
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)
	user := body["user"].(map[string]interface{})
	return token, uint(user["id"].(float64))
}

func seedCommunity(t *testing.T, db *gorm.DB, title string) *models.Community {
	t.Helper()
	community := models.Community{
		Title:    title,
		Slug:     utils.Slugify(title),
		IsActive: true,
	}
	require.NoError(t, db.Create(&community).Error)
	return &community
}

func createPost(t *testing.T, r http.Handler, token string, communityID uint, title string, tags []string) uint {
	t.Helper()
	w := perform(r, http.MethodPost, "/posts", gin.H{
		"title":        title,
		"content":      "Some body text for " + title,
		"community_id": communityID,
		"tags":         tags,
	}, token)
	require.Equal(t, http.StatusCreated, w.Code, "body: %s", w.Body.String())

	post := decode(t, w)["post"].(map[string]interface{})
	return uint(post["id"].(float64))
}

func seedAdmin(t *testing.T, db *gorm.DB, username, password string, active bool) *models.AdminUser {
	t.Helper()
	hash, err := utils.HashPassword(password)
	require.NoError(t, err)
	admin := models.AdminUser{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: hash,
		IsActive:     active,
	}
	require.NoError(t, db.Create(&admin).Error)
	return &admin
}

func adminLogin(t *testing.T, r http.Handler, username, password string) string {
	t.Helper()
	w := perform(r, http.MethodPost, "/admin/login", gin.H{
		"email":    username + "@example.com",
		"password": password,
	}, "")
	require.Equal(t, http.StatusOK, w.Code, "body: %s", w.Body.String())
	token, _ := decode(t, w)["token"].(string)
	require.NotEmpty(t, token)
	return token
}
