package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"

	. "github.com/genzugar/backend/apps/api/echo"
	"github.com/genzugar/backend/core"
	"github.com/genzugar/backend/core/bmi"
	"github.com/genzugar/backend/core/ebook"
	"github.com/genzugar/backend/core/glossary"
	"github.com/genzugar/backend/core/module"
	"github.com/genzugar/backend/core/progress"
	"github.com/genzugar/backend/core/user"
	"github.com/genzugar/backend/core/video"
	catalogsvc "github.com/genzugar/backend/services/catalog"
	emailsvc "github.com/genzugar/backend/services/email"
	storagesvc "github.com/genzugar/backend/services/storage"
	inmemdb "github.com/genzugar/backend/storage/database/inmem"
)

const (
	storageBaseURL = "https://cdn.test"
	strongPassword = "Sup3r-Gula!"
)

var (
	ctx = context.Background()

	usrRepo     user.Repository
	moduleSvc   module.Service
	ebookSvc    ebook.Service
	videoSvc    video.Service
	glossarySvc glossary.Service
	catalog     core.Catalog
	objects     *storagesvc.MemoryStorage
	mailbox     *emailsvc.ConsoleService

	errMissingToken = httpErr{Error: "missing or malformed jwt"}
	errForbidden    = httpErr{Error: "permission denied"}
)

func init() {
	core.Conf.TestMode = true
}

func setup(t *testing.T) Server {
	t.Helper()

	// set up DB & repos
	db := inmemdb.Open()
	usrRepo = inmemdb.NewUserRepository(db)

	// set up services
	logger := core.NopLogger{}
	catalog = catalogsvc.NewMemoryCatalog()
	objects = storagesvc.NewMemoryStorage(storageBaseURL)
	mailbox = emailsvc.NewOutbox()

	usrSvc := user.NewService(usrRepo, mailbox, logger)
	bmiSvc := bmi.NewService(inmemdb.NewBMIRepository(db), usrSvc, logger)
	ebookSvc = ebook.NewService(inmemdb.NewEbookRepository(db), objects, catalog, logger)
	videoSvc = video.NewService(inmemdb.NewVideoRepository(db), catalog)
	glossarySvc = glossary.NewService(inmemdb.NewGlossaryRepository(db), catalog)
	moduleSvc = module.NewService(inmemdb.NewModuleRepository(db), catalog)
	progressSvc := progress.NewService(inmemdb.NewProgressRepository(db), bmiSvc, moduleSvc, ebookSvc, videoSvc)

	// set up server
	return NewServer(&Options{
		DisableReqLogs: true,
		Logger:         logger,
		UserSvc:        usrSvc,
		BMISvc:         bmiSvc,
		EbookSvc:       ebookSvc,
		VideoSvc:       videoSvc,
		GlossarySvc:    glossarySvc,
		ModuleSvc:      moduleSvc,
		ProgressSvc:    progressSvc,
		Catalog:        catalog,
	})
}

type httpErr struct {
	Error string `json:"error"`
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

// newMultipartRequest builds a multipart form from fields and files (field name => filename => content).
func newMultipartRequest(
	t *testing.T,
	method, path, token string,
	fields map[string]string,
	files map[string]map[string]string,
) (*http.Request, *httptest.ResponseRecorder) {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatalf("WriteField() failed: %v", err)
		}
	}
	for field, f := range files {
		for filename, content := range f {
			fw, err := w.CreateFormFile(field, filename)
			if err != nil {
				t.Fatalf("CreateFormFile() failed: %v", err)
			}
			if _, err = fw.Write([]byte(content)); err != nil {
				t.Fatalf("Write() failed: %v", err)
			}
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("multipart.Close() failed: %v", err)
	}

	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, httptest.NewRecorder()
}

func getToken(t *testing.T, usr user.User) string {
	t.Helper()
	claims := GetUserClaims(usr)
	token, err := GenerateToken(claims)
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func marchallList(t *testing.T, objs ...interface{}) []byte {
	t.Helper()
	if objs == nil {
		objs = []interface{}{}
	}
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList() failed: %v", err)
	}
	return data
}

func unmarshal(t *testing.T, rec *httptest.ResponseRecorder, dest interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dest); err != nil {
		t.Fatalf("json.Unmarshal(%s) failed: %v", rec.Body.String(), err)
	}
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if j1 == nil || j2 == nil {
		return false, nil
	}
	return assert.ElementsMatch(t, j1, j2), nil
}

func checkCode(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
	}
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	checkCode(t, tt, rec)
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
