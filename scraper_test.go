package main

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func Test_updateHandicaps(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	assert.NoError(t, err)

	err = applyMigrations(db)
	assert.NoError(t, err)

	db.Create(&Player{PlayerID: "p1", Name: "Walt Ellis", TeamID: "red", CourseHandicap: 4})
	db.Create(&Player{PlayerID: "p2", Name: "Sara Morris", TeamID: "blue", CourseHandicap: 20})
	db.Create(&Player{PlayerID: "p3", Name: "Ray Ellis", TeamID: "red", CourseHandicap: 9})

	path := filepath.Join("testdata", "roster.html")
	htmlContent, err := os.ReadFile(path)
	assert.NoError(t, err)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(htmlContent)
	}))
	defer server.Close()

	updated, err := updateHandicaps(db, server.URL)
	assert.NoError(t, err)
	assert.Equal(t, 2, updated)

	var walt, sara, ray Player
	assert.NoError(t, db.First(&walt, "player_id = ?", "p1").Error)
	assert.NoError(t, db.First(&sara, "player_id = ?", "p2").Error)
	assert.NoError(t, db.First(&ray, "player_id = ?", "p3").Error)

	// Walt's index of 6.2 floors to 6, Sara's "+1" plays as scratch.
	assert.Equal(t, 6, walt.CourseHandicap)
	assert.Equal(t, 0, sara.CourseHandicap)

	// Ray isn't on the roster page and keeps his handicap.
	assert.Equal(t, 9, ray.CourseHandicap)
}

func Test_updateHandicapsNoRows(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	assert.NoError(t, err)
	assert.NoError(t, applyMigrations(db))

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body><p>members only</p></body></html>"))
	}))
	defer server.Close()

	_, err = updateHandicaps(db, server.URL)
	assert.Error(t, err)
}
