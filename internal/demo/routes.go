package demo

import (
	"errors"
	"io/fs"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/querybar/internal/querybar"
	"gorm.io/gorm"
)

// registerRoutes sets up all demo routes on the Gin router.
func registerRoutes(router *gin.Engine) {
	// Embedded static assets (served from assets/ subdir of the embed.FS).
	staticFS, _ := fs.Sub(assetsFS, "assets")
	router.StaticFS("/static", http.FS(staticFS))

	router.GET("/", handleIndex)
	router.GET("/notes/:id", handleNote)
	router.GET("/search", handleSearch)
}

func handleIndex(c *gin.Context) {
	notes, err := ListNotes(querybar.DB(c))
	if err != nil {
		log.Printf("demo: list notes: %v", err)
		c.HTML(http.StatusInternalServerError, "layout.html", gin.H{"page": "error", "error": "could not load notes"})
		return
	}
	c.HTML(http.StatusOK, "layout.html", gin.H{
		"page":  "index",
		"notes": notes,
	})
}

func handleNote(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.HTML(http.StatusBadRequest, "layout.html", gin.H{"page": "error", "error": "invalid note id"})
		return
	}
	note, err := GetNote(querybar.DB(c), uint(id))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.HTML(http.StatusNotFound, "layout.html", gin.H{"page": "error", "error": "note not found"})
		return
	}
	if err != nil {
		log.Printf("demo: get note %d: %v", id, err)
		c.HTML(http.StatusInternalServerError, "layout.html", gin.H{"page": "error", "error": "could not load note"})
		return
	}
	c.HTML(http.StatusOK, "layout.html", gin.H{
		"page": "note",
		"note": note,
	})
}

func handleSearch(c *gin.Context) {
	q := c.Query("q")
	notes, err := SearchNotes(querybar.DB(c), q)
	if err != nil {
		log.Printf("demo: search %q: %v", q, err)
		c.HTML(http.StatusInternalServerError, "layout.html", gin.H{"page": "error", "error": "search failed"})
		return
	}
	c.HTML(http.StatusOK, "layout.html", gin.H{
		"page":  "search",
		"query": q,
		"notes": notes,
	})
}
