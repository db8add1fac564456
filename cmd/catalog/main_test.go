package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"library-system/pkg/models"
)

func setupTestDB() *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		panic("failed to connect test database")
	}
	db.AutoMigrate(&models.Book{})
	return db
}

func seedBook(testDB *gorm.DB, title, genre string, available, total int) models.Book {
	book := models.Book{
		BookUid:         uuid.New().String(),
		Title:           title,
		AuthorName:      "Author",
		Genre:           genre,
		TotalCopies:     total,
		CopiesAvailable: available,
	}
	testDB.Create(&book)
	return book
}

func jsonRequest(method, path, body string) (*httptest.ResponseRecorder, *gin.Context) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(method, path, bytes.NewBufferString(body))
	c.Request.Header.Set("Content-Type", "application/json")
	return w, c
}

func TestCreateBook(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db = setupTestDB()

	w, c := jsonRequest("POST", "/api/v1/books", `{"title":"Dune","authorName":"Frank Herbert","genre":"SciFi","publishedYear":1965,"totalCopies":4}`)
	createBook(c)

	assert.Equal(t, http.StatusCreated, w.Code)

	var response map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &response)
	assert.Equal(t, "Dune", response["title"])
	assert.Equal(t, float64(4), response["totalCopies"])
	// New books start fully available.
	assert.Equal(t, float64(4), response["copiesAvailable"])
	assert.NotEmpty(t, response["bookUid"])
}

func TestCreateBookValidation(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db = setupTestDB()

	w, c := jsonRequest("POST", "/api/v1/books", `{"title":"No Copies"}`)
	createBook(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetBookNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db = setupTestDB()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("GET", "/api/v1/books/missing", nil)
	c.Params = gin.Params{gin.Param{Key: "bookUid", Value: "missing"}}

	getBook(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetBooksPagedByGenre(t *testing.T) {
	gin.SetMode(gin.TestMode)
	testDB := setupTestDB()
	db = testDB

	seedBook(testDB, "Fiction One", "Fiction", 1, 1)
	seedBook(testDB, "Fiction Two", "Fiction", 2, 2)
	seedBook(testDB, "Tech One", "Technology", 1, 1)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("GET", "/api/v1/books?genre=Fiction&page=1&size=1", nil)
	getBooks(c)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &response)
	assert.Equal(t, float64(2), response["totalElements"])
	assert.Len(t, response["items"], 1)
}

func TestGetAvailableBooks(t *testing.T) {
	gin.SetMode(gin.TestMode)
	testDB := setupTestDB()
	db = testDB

	seedBook(testDB, "On Shelf", "Fiction", 2, 2)
	out := seedBook(testDB, "All Out", "Fiction", 0, 1)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("GET", "/api/v1/books/available", nil)
	getAvailableBooks(c)

	assert.Equal(t, http.StatusOK, w.Code)

	var items []map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &items)
	assert.Len(t, items, 1)
	assert.NotEqual(t, out.BookUid, items[0]["bookUid"])
}

func TestUpdateBookPreservesCopiesOnLoan(t *testing.T) {
	gin.SetMode(gin.TestMode)
	testDB := setupTestDB()
	db = testDB

	// 2 of 5 copies are out on loan.
	book := seedBook(testDB, "Popular", "Fiction", 3, 5)

	w, c := jsonRequest("PUT", "/api/v1/books/"+book.BookUid, `{"totalCopies":4}`)
	c.Params = gin.Params{gin.Param{Key: "bookUid", Value: book.BookUid}}
	updateBook(c)

	assert.Equal(t, http.StatusOK, w.Code)

	var updated models.Book
	testDB.Where("book_uid = ?", book.BookUid).First(&updated)
	assert.Equal(t, 4, updated.TotalCopies)
	assert.Equal(t, 2, updated.CopiesAvailable)
}

func TestUpdateBookBelowCopiesOnLoan(t *testing.T) {
	gin.SetMode(gin.TestMode)
	testDB := setupTestDB()
	db = testDB

	book := seedBook(testDB, "Popular", "Fiction", 1, 5)

	w, c := jsonRequest("PUT", "/api/v1/books/"+book.BookUid, `{"totalCopies":3}`)
	c.Params = gin.Params{gin.Param{Key: "bookUid", Value: book.BookUid}}
	updateBook(c)

	assert.Equal(t, http.StatusConflict, w.Code)

	var unchanged models.Book
	testDB.Where("book_uid = ?", book.BookUid).First(&unchanged)
	assert.Equal(t, 5, unchanged.TotalCopies)
}

func TestDeleteBookWithCopiesOnLoan(t *testing.T) {
	gin.SetMode(gin.TestMode)
	testDB := setupTestDB()
	db = testDB

	book := seedBook(testDB, "Held", "Fiction", 1, 2)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("DELETE", "/api/v1/books/"+book.BookUid, nil)
	c.Params = gin.Params{gin.Param{Key: "bookUid", Value: book.BookUid}}

	deleteBook(c)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestDeleteBook(t *testing.T) {
	gin.SetMode(gin.TestMode)
	testDB := setupTestDB()
	db = testDB

	book := seedBook(testDB, "Retired", "Fiction", 2, 2)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("DELETE", "/api/v1/books/"+book.BookUid, nil)
	c.Params = gin.Params{gin.Param{Key: "bookUid", Value: book.BookUid}}

	deleteBook(c)
	c.Writer.WriteHeaderNow()

	assert.Equal(t, http.StatusNoContent, w.Code)

	var count int64
	testDB.Model(&models.Book{}).Count(&count)
	assert.Equal(t, int64(0), count)
}
