// Package docs registers the OpenAPI document of the HTTP API with swag.
// Regenerate with: swag init -g cmd/sercha-originality/main.go
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {
            "name": "Sercha OSS",
            "url": "https://github.com/custodia-labs/sercha-originality/issues"
        },
        "license": {
            "name": "Apache 2.0",
            "url": "http://www.apache.org/licenses/LICENSE-2.0.html"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/corpus/sources": {
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "Adds a reference document to the corpus (admin only). With async=true the source is queued for the worker and the task is returned.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Corpus"],
                "summary": "Add a source",
                "parameters": [
                    {"description": "Source document", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/domain.NewSourceRequest"}},
                    {"type": "boolean", "description": "Queue ingestion instead of waiting for it", "name": "async", "in": "query"}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/domain.Source"}},
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/domain.Task"}},
                    "400": {"description": "Invalid source", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "403": {"description": "Forbidden - admin only", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "409": {"description": "Source exists or ingest in progress", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/corpus/sources/{id}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "description": "Returns a corpus source by ID",
                "produces": ["application/json"],
                "tags": ["Corpus"],
                "summary": "Get a source",
                "parameters": [
                    {"type": "string", "description": "Source ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.Source"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "404": {"description": "Source not found", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/corpus/stats": {
            "get": {
                "security": [{"BearerAuth": []}],
                "description": "Returns the corpus version, source count, total words and embedded source count",
                "produces": ["application/json"],
                "tags": ["Corpus"],
                "summary": "Corpus statistics",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.CorpusStats"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "503": {"description": "Corpus unavailable", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/plagiarism/check": {
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "Runs the fingerprint, n-gram and semantic layers over the text and returns the originality report. The report is recorded in the caller's history when history is enabled.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Plagiarism"],
                "summary": "Check a document",
                "parameters": [
                    {"description": "Document and options", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/domain.CheckRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/http.CheckResponse"}},
                    "400": {"description": "Invalid input or options", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "503": {"description": "Corpus unavailable", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/plagiarism/citations/suggest": {
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "Returns sources that claim-like passages resemble without being copied. Requires a configured embedding provider.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Plagiarism"],
                "summary": "Suggest citations",
                "parameters": [
                    {"description": "Document and options", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/domain.CheckRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/http.CitationResponse"}},
                    "400": {"description": "Invalid input or options", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "503": {"description": "Semantic layer unavailable", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/plagiarism/history": {
            "get": {
                "security": [{"BearerAuth": []}],
                "description": "Lists the caller's most recent checks, newest first",
                "produces": ["application/json"],
                "tags": ["Plagiarism"],
                "summary": "Check history",
                "parameters": [
                    {"type": "integer", "description": "Maximum number of checks (default 20, max 100)", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/http.HistoryResponse"}},
                    "400": {"description": "Invalid limit", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "503": {"description": "History not enabled", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/plagiarism/reports/{id}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "description": "Returns a recorded check with its full report. Only the owner or an admin may read it.",
                "produces": ["application/json"],
                "tags": ["Plagiarism"],
                "summary": "Get a recorded check",
                "parameters": [
                    {"type": "string", "description": "Check ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.CheckRecord"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "403": {"description": "Not the owner", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "404": {"description": "Check not found", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            },
            "delete": {
                "security": [{"BearerAuth": []}],
                "description": "Removes a recorded check. Only the owner or an admin may delete it.",
                "tags": ["Plagiarism"],
                "summary": "Delete a recorded check",
                "parameters": [
                    {"type": "string", "description": "Check ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "204": {"description": "Deleted"},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "403": {"description": "Not the owner", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "404": {"description": "Check not found", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "domain.CheckOverrides": {
            "type": "object",
            "description": "Omitted fields keep the service defaults. Zero is a valid value.",
            "properties": {
                "chunk_size": {"type": "integer", "example": 50},
                "stride": {"type": "integer", "example": 25},
                "min_words": {"type": "integer", "example": 10},
                "shingle_size": {"type": "integer", "example": 5},
                "fingerprint_window": {"type": "integer", "example": 8},
                "exact_threshold": {"type": "number", "example": 0.95},
                "near_duplicate_threshold": {"type": "number", "example": 0.8},
                "paraphrase_threshold": {"type": "number", "example": 0.85},
                "citation_low_threshold": {"type": "number", "example": 0.7},
                "plagiarism_threshold": {"type": "number", "example": 0.8},
                "max_overlap_fraction": {"type": "number"},
                "stitch_gap": {"type": "integer"},
                "penalty_scale": {"type": "number"},
                "concentration_span": {"type": "integer"},
                "top_k": {"type": "integer", "example": 5},
                "timeout_ms": {"type": "integer", "example": 3000},
                "skip_semantic": {"type": "boolean"},
                "claims_only": {"type": "boolean"}
            }
        },
        "domain.CheckRequest": {
            "type": "object",
            "properties": {
                "text": {"type": "string"},
                "language": {"type": "string", "example": "en"},
                "content_type": {"type": "string", "example": "text/html"},
                "options": {"$ref": "#/definitions/domain.CheckOverrides"}
            }
        },
        "domain.SourceRef": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "title": {"type": "string"},
                "url": {"type": "string"}
            }
        },
        "domain.Match": {
            "type": "object",
            "properties": {
                "source": {"$ref": "#/definitions/domain.SourceRef"},
                "similarity": {"type": "number"},
                "match_type": {"type": "string", "enum": ["exact", "near_duplicate", "paraphrase"]},
                "matched_text": {"type": "string"},
                "confidence": {"type": "number"},
                "chunk_id": {"type": "string"},
                "start_word": {"type": "integer"},
                "end_word": {"type": "integer"},
                "start_byte": {"type": "integer"},
                "end_byte": {"type": "integer"},
                "layer": {"type": "string", "enum": ["fingerprint", "ngram", "semantic"]}
            }
        },
        "domain.CitationSuggestion": {
            "type": "object",
            "properties": {
                "chunk_id": {"type": "string"},
                "source": {"$ref": "#/definitions/domain.SourceRef"},
                "similarity": {"type": "number"},
                "claim": {"type": "string"},
                "chunk_text": {"type": "string"},
                "start_byte": {"type": "integer"},
                "end_byte": {"type": "integer"}
            }
        },
        "domain.PlagiarismReport": {
            "type": "object",
            "properties": {
                "document_id": {"type": "string"},
                "language": {"type": "string"},
                "originality_score": {"type": "number"},
                "plagiarism_detected": {"type": "boolean"},
                "matches": {"type": "array", "items": {"$ref": "#/definitions/domain.Match"}},
                "confidence": {"type": "string", "enum": ["high", "medium"]},
                "status": {"type": "string", "enum": ["complete", "partial"]},
                "degraded": {"type": "boolean"},
                "warnings": {"type": "array", "items": {"type": "string"}},
                "layers": {"type": "array", "items": {"$ref": "#/definitions/domain.LayerStatus"}},
                "statistics": {"$ref": "#/definitions/domain.ReportStatistics"},
                "citations": {"type": "array", "items": {"$ref": "#/definitions/domain.CitationSuggestion"}},
                "corpus_version": {"type": "integer"}
            }
        },
        "domain.LayerStatus": {
            "type": "object",
            "properties": {
                "layer": {"type": "string", "enum": ["fingerprint", "ngram", "semantic"]},
                "state": {"type": "string", "enum": ["ran", "skipped", "timed_out", "failed"]},
                "matches": {"type": "integer"}
            }
        },
        "domain.ReportStatistics": {
            "type": "object",
            "properties": {
                "total_words": {"type": "integer"},
                "matched_words": {"type": "integer"},
                "match_percentage": {"type": "number"},
                "unique_sources": {"type": "integer"},
                "matches_by_type": {"type": "object", "additionalProperties": {"type": "integer"}},
                "highest_similarity": {"type": "number"},
                "average_similarity": {"type": "number"}
            }
        },
        "domain.CheckRecord": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "owner_id": {"type": "string"},
                "report": {"$ref": "#/definitions/domain.PlagiarismReport"},
                "text_length": {"type": "integer"},
                "word_count": {"type": "integer"},
                "created_at": {"type": "string"}
            }
        },
        "domain.CheckSummary": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "document_id": {"type": "string"},
                "originality_score": {"type": "number"},
                "plagiarism_detected": {"type": "boolean"},
                "match_count": {"type": "integer"},
                "degraded": {"type": "boolean"},
                "word_count": {"type": "integer"},
                "created_at": {"type": "string"}
            }
        },
        "domain.NewSourceRequest": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "title": {"type": "string"},
                "url": {"type": "string"},
                "text": {"type": "string"},
                "content_type": {"type": "string", "example": "text/markdown"}
            }
        },
        "domain.Source": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "title": {"type": "string"},
                "url": {"type": "string"},
                "text": {"type": "string"},
                "version": {"type": "integer"},
                "created_at": {"type": "string"}
            }
        },
        "domain.CorpusStats": {
            "type": "object",
            "properties": {
                "version": {"type": "integer"},
                "source_count": {"type": "integer"},
                "total_words": {"type": "integer"},
                "embedded": {"type": "integer"}
            }
        },
        "domain.Task": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "type": {"type": "string", "example": "ingest_source"},
                "status": {"type": "string"},
                "attempts": {"type": "integer"},
                "max_attempts": {"type": "integer"},
                "created_at": {"type": "string"}
            }
        },
        "http.CheckResponse": {
            "type": "object",
            "allOf": [{"$ref": "#/definitions/domain.PlagiarismReport"}],
            "properties": {
                "check_id": {"type": "string"}
            }
        },
        "http.CitationResponse": {
            "type": "object",
            "properties": {
                "suggestions": {"type": "array", "items": {"$ref": "#/definitions/domain.CitationSuggestion"}},
                "total_suggestions": {"type": "integer"}
            }
        },
        "http.HistoryResponse": {
            "type": "object",
            "properties": {
                "checks": {"type": "array", "items": {"$ref": "#/definitions/domain.CheckSummary"}},
                "count": {"type": "integer"}
            }
        },
        "http.ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string", "example": "invalid request body"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "description": "JWT Bearer token. Format: \"Bearer {token}\"",
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/api/v1",
	Schemes:          []string{"http", "https"},
	Title:            "Sercha Originality API",
	Description:      "Plagiarism detection API. Checks documents against a reference corpus with fingerprint, n-gram and semantic matching.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
