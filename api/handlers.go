package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/gcbaptista/go-geocode-keys/index"
	geoerrors "github.com/gcbaptista/go-geocode-keys/internal/errors"
	"github.com/gcbaptista/go-geocode-keys/internal/feature"
	"github.com/gcbaptista/go-geocode-keys/internal/jobs"
	"github.com/gcbaptista/go-geocode-keys/internal/termops"
	"github.com/gcbaptista/go-geocode-keys/internal/tilecode"
	"github.com/gcbaptista/go-geocode-keys/internal/tokenizer"
	"github.com/gcbaptista/go-geocode-keys/internal/utfgrid"
	"github.com/gcbaptista/go-geocode-keys/model"
	"github.com/gcbaptista/go-geocode-keys/services"
)

// API holds dependencies for API handlers, primarily the index being served.
type API struct {
	index   services.IndexAccessor
	jobs    *jobs.Manager
	dataDir string
	encoder *termops.Encoder
	coder   *tilecode.Coder
}

// NewAPI creates a new API handler structure. An empty dataDir disables
// POST /persist.
func NewAPI(idx services.IndexAccessor, jobManager *jobs.Manager, dataDir string) *API {
	enc := idx.Encoder()
	return &API{
		index:   idx,
		jobs:    jobManager,
		dataDir: dataDir,
		encoder: enc,
		coder:   tilecode.NewCoder(enc.Scheme()),
	}
}

// SetupRoutes defines all the API routes for the key inspection service.
func SetupRoutes(router *gin.Engine, idx services.IndexAccessor, jobManager *jobs.Manager, dataDir string) {
	apiHandler := NewAPI(idx, jobManager, dataDir)

	// Health check route
	router.GET("/health", apiHandler.HealthCheckHandler)

	// Stateless encoding routes
	router.POST("/tokenize", apiHandler.TokenizeHandler)
	router.POST("/terms", apiHandler.TermsHandler)
	router.GET("/degens/:term", apiHandler.DegensHandler)
	router.POST("/phrase", apiHandler.PhraseHandler)
	router.GET("/zxy", apiHandler.ZXYHandler)
	router.GET("/codes/:key", apiHandler.CodeHandler)
	router.POST("/features/assemble", apiHandler.AssembleFeatureHandler)

	// Index routes
	router.PUT("/records", apiHandler.AddRecordsHandler)
	router.GET("/postings/:kind/:id", apiHandler.PostingsHandler)
	router.GET("/vocabulary", apiHandler.VocabularyHandler)
	router.POST("/features", apiHandler.FeatureHandler)
	router.POST("/persist", apiHandler.PersistHandler)

	// Job routes
	router.GET("/jobs", apiHandler.ListJobsHandler)
	router.GET("/jobs/metrics", apiHandler.GetJobMetricsHandler)
	router.GET("/jobs/:jobId", apiHandler.GetJobHandler)
}

// HealthCheckHandler provides a simple health check endpoint
func (api *API) HealthCheckHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   "geokeys",
		"timestamp": fmt.Sprintf("%d", time.Now().Unix()),
		"scheme":    api.encoder.Scheme(),
		"stats":     api.index.Stats(),
	})
}

// TokenizeRequest is the body of POST /tokenize.
type TokenizeRequest struct {
	Text          string `json:"text"`
	CoerceNumeric bool   `json:"coerce_numeric"`
}

// TokenizeHandler normalizes text into tokens, or a coordinate pair.
func (api *API) TokenizeHandler(c *gin.Context) {
	var req TokenizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		SendInvalidJSONError(c, err)
		return
	}

	q := api.encoder.Normalizer().TokenizeQuery(req.Text, req.CoerceNumeric)
	if q.IsLonLat() {
		c.JSON(http.StatusOK, gin.H{"tokens": []string{}, "lonlat": q.LonLat})
		return
	}
	c.JSON(http.StatusOK, gin.H{"tokens": q.Tokens})
}

// TermsRequest is the body of POST /terms. Tokens win over Text when both are set.
type TermsRequest struct {
	Text   string   `json:"text"`
	Tokens []string `json:"tokens"`
}

// TermsHandler hashes tokens into term IDs.
func (api *API) TermsHandler(c *gin.Context) {
	var req TermsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		SendInvalidJSONError(c, err)
		return
	}

	tokens := req.Tokens
	if len(tokens) == 0 {
		tokens = api.encoder.Normalizer().Tokenize(req.Text)
	}
	c.JSON(http.StatusOK, gin.H{
		"tokens": tokens,
		"terms":  api.encoder.Terms(tokens),
		"map":    api.encoder.TermsMap(tokens),
	})
}

// DegenEntry is one (prefix key, degenerate value) pair.
type DegenEntry struct {
	Prefix   string `json:"prefix"`
	Key      uint32 `json:"key"`
	Value    uint32 `json:"value"`
	Distance int    `json:"distance"`
}

// DegensHandler lists the degenerate pairs of a single term, nearest first.
func (api *API) DegensHandler(c *gin.Context) {
	term := c.Param("term")
	if result := ValidateTerm(term); result.HasErrors() {
		SendValidationError(c, result)
		return
	}

	degens := api.encoder.Degens(term)
	prefixes := tokenizer.GeneratePrefixNGrams(term)
	entries := make([]DegenEntry, 0, len(degens)/2)
	for i := 0; i+1 < len(degens); i += 2 {
		distance := api.encoder.DegenDistance(degens[i+1])
		entries = append(entries, DegenEntry{
			Prefix:   prefixes[len(prefixes)-1-distance],
			Key:      degens[i],
			Value:    degens[i+1],
			Distance: distance,
		})
	}
	c.JSON(http.StatusOK, gin.H{"term": term, "degens": entries})
}

// PhraseRequest is the body of POST /phrase. Terms win over Text when both are set.
type PhraseRequest struct {
	Text  string   `json:"text"`
	Terms []uint32 `json:"terms"`
}

// PhraseHandler computes the phrase ID and cluster of a term sequence.
func (api *API) PhraseHandler(c *gin.Context) {
	var req PhraseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		SendInvalidJSONError(c, err)
		return
	}

	terms := req.Terms
	if len(terms) == 0 {
		terms = api.encoder.TermsOf(req.Text)
	}
	if len(terms) == 0 {
		result := &ValidationResult{Valid: true}
		result.AddError("terms", "Text or terms must yield at least one term")
		SendValidationError(c, result)
		return
	}

	phrase := api.encoder.Phrase(terms)
	c.JSON(http.StatusOK, gin.H{
		"terms":   terms,
		"phrase":  phrase,
		"cluster": api.encoder.Cluster(phrase),
	})
}

// ZXYQuery holds the query parameters of GET /zxy.
type ZXYQuery struct {
	ID  uint64 `form:"id"`
	ZXY string `form:"zxy"`
}

// ZXYHandler packs a tile path and a local ID into a tile ID.
func (api *API) ZXYHandler(c *gin.Context) {
	var q ZXYQuery
	if result := ValidateQueryBinding(c, &q); result.HasErrors() {
		SendValidationError(c, result)
		return
	}
	if result := ValidateZXY(q.ZXY); result.HasErrors() {
		SendValidationError(c, result)
		return
	}
	if q.ID > api.coder.MaxLocalID() {
		SendDomainError(c, "zxy", geoerrors.NewTileRangeError(q.ID, api.coder.MaxLocalID()))
		return
	}

	tileID := api.coder.ZXY(q.ID, q.ZXY)
	tile, localID := api.coder.Decode(tileID)
	c.JSON(http.StatusOK, gin.H{
		"tile_id":  tileID,
		"x":        tile.X,
		"y":        tile.Y,
		"local_id": localID,
	})
}

// CodeHandler resolves a UTF grid character code to its feature key.
func (api *API) CodeHandler(c *gin.Context) {
	code, err := strconv.Atoi(c.Param("key"))
	if err != nil {
		result := &ValidationResult{Valid: true}
		result.AddError("key", "Code must be an integer")
		SendValidationError(c, result)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": code, "key": utfgrid.ResolveCode(code)})
}

// AssembleFeatureHandler formats a context chain sent in the body.
func (api *API) AssembleFeatureHandler(c *gin.Context) {
	var ctx model.Context
	if err := c.ShouldBindJSON(&ctx); err != nil {
		SendInvalidJSONError(c, err)
		return
	}

	feat, err := feature.ToFeature(ctx)
	if err != nil {
		SendDomainError(c, "assemble feature", err)
		return
	}
	c.JSON(http.StatusOK, feat)
}

// PostingsHandler returns the postings stored under one ID.
func (api *API) PostingsHandler(c *gin.Context) {
	kind, err := index.ParseKind(c.Param("kind"))
	if err != nil {
		SendDomainError(c, "postings", err)
		return
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		result := &ValidationResult{Valid: true}
		result.AddError("id", "ID must be an unsigned integer")
		SendValidationError(c, result)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"kind":     kind,
		"id":       id,
		"postings": api.index.Postings(kind, id),
	})
}

// VocabularyHandler lists indexed tokens by prefix.
func (api *API) VocabularyHandler(c *gin.Context) {
	prefix := api.encoder.Normalizer().Tokenize(c.Query("prefix"))
	p := ""
	if len(prefix) > 0 {
		p = prefix[0]
	}
	entries := api.index.Vocabulary(p)
	c.JSON(http.StatusOK, gin.H{"prefix": p, "total": len(entries), "vocabulary": entries})
}
