// Package docs registers the OpenAPI document served under /swagger/.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/workflows": {
            "post": {
                "tags": [
                    "workflows"
                ],
                "summary": "Create a workflow",
                "description": "Create an empty dataset workflow session",
                "produces": [
                    "application/json"
                ],
                "consumes": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "description": "Workflow name",
                        "name": "workflow",
                        "in": "body",
                        "required": false,
                        "schema": {
                            "$ref": "#/definitions/handler.CreateWorkflowRequest"
                        }
                    }
                ],
                "responses": {
                    "201": {
                        "description": "Created",
                        "schema": {
                            "$ref": "#/definitions/model.WorkflowInfo"
                        }
                    },
                    "400": {
                        "description": "Invalid request",
                        "schema": {
                            "$ref": "#/definitions/handler.ErrorBody"
                        }
                    },
                    "404": {
                        "description": "Workflow not found",
                        "schema": {
                            "$ref": "#/definitions/handler.ErrorBody"
                        }
                    },
                    "409": {
                        "description": "Precondition failed or busy",
                        "schema": {
                            "$ref": "#/definitions/handler.ErrorBody"
                        }
                    },
                    "502": {
                        "description": "Backend failure",
                        "schema": {
                            "$ref": "#/definitions/handler.ErrorBody"
                        }
                    }
                }
            },
            "get": {
                "tags": [
                    "workflows"
                ],
                "summary": "List workflows",
                "description": "Get all workflows, newest first",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "type": "array",
                            "items": {
                                "$ref": "#/definitions/model.WorkflowInfo"
                            }
                        }
                    },
                    "400": {
                        "description": "Invalid request",
                        "schema": {
                            "$ref": "#/definitions/handler.ErrorBody"
                        }
                    },
                    "404": {
                        "description": "Workflow not found",
                        "schema": {
                            "$ref": "#/definitions/handler.ErrorBody"
                        }
                    },
                    "409": {
                        "description": "Precondition failed or busy",
                        "schema": {
                            "$ref": "#/definitions/handler.ErrorBody"
                        }
                    },
                    "502": {
                        "description": "Backend failure",
                        "schema": {
                            "$ref": "#/definitions/handler.ErrorBody"
                        }
                    }
                }
            }
        },
        "/workflows/{id}": {
            "get": {
                "tags": [
                    "workflows"
                ],
                "summary": "Get workflow",
                "description": "Retrieve a workflow and its current state",
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "type": "string",
                        "description": "Workflow ID",
                        "name": "id",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/handler.WorkflowResponse"
                        }
                    },
                    "400": {
                        "description": "Invalid request",
                        "schema": {
                            "$ref": "#/definitions/handler.ErrorBody"
                        }
                    },
                    "404": {
                        "description": "Workflow not found",
                        "schema": {
                            "$ref": "#/definitions/handler.ErrorBody"
                        }
                    },
                    "409": {
                        "description": "Precondition failed or busy",
                        "schema": {
                            "$ref": "#/definitions/handler.ErrorBody"
                        }
                    },
                    "502": {
                        "description": "Backend failure",
                        "schema": {
                            "$ref": "#/definitions/handler.ErrorBody"
                        }
                    }
                }
            },
            "delete": {
                "tags": [
                    "workflows"
                ],
                "summary": "Delete workflow",
                "description": "Stop a workflow, delete its history and exported files",
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "type": "string",
                        "description": "Workflow ID",
                        "name": "id",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "204": {
                        "description": "No Content"
                    },
                    "400": {
                        "description": "Invalid request",
                        "schema": {
                            "$ref": "#/definitions/handler.ErrorBody"
                        }
                    },
                    "404": {
                        "description": "Workflow not found",
                        "schema": {
                            "$ref": "#/definitions/handler.ErrorBody"
                        }
                    },
                    "409": {
                        "description": "Precondition failed or busy",
                        "schema": {
                            "$ref": "#/definitions/handler.ErrorBody"
                        }
                    },
                    "502": {
                        "description": "Backend failure",
                        "schema": {
                            "$ref": "#/definitions/handler.ErrorBody"
                        }
                    }
                }
            }
        },
        "/workflows/{id}/reset": {
            "post": {
                "tags": [
                    "workflows"
                ],
                "summary": "Reset workflow",
                "description": "Return the workflow to the empty stage",
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "type": "string",
                        "description": "Workflow ID",
                        "name": "id",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/pipeline.Snapshot"
                        }
                    },
                    "400": {
                        "description": "Invalid request",
                        "schema": {
                            "$ref": "#/definitions/handler.ErrorBody"
                        }
                    },
                    "404": {
                        "description": "Workflow not found",
                        "schema": {
                            "$ref": "#/definitions/handler.ErrorBody"
                        }
                    },
                    "409": {
                        "description": "Precondition failed or busy",
                        "schema": {
                            "$ref": "#/definitions/handler.ErrorBody"
                        }
                    },
                    "502": {
                        "description": "Backend failure",
                        "schema": {
                            "$ref": "#/definitions/handler.ErrorBody"
                        }
                    }
                }
            }
        },
        "/workflows/{id}/load": {
            "post": {
                "tags": [
                    "stages"
                ],
                "summary": "Load data",
                "description": "Load rows, a dataset, a backend source, a stored dataset or a CSV/JSON URL",
                "produces": [
                    "application/json"
                ],
                "consumes": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "type": "string",
                        "description": "Workflow ID",
                        "name": "id",
                        "in": "path",
                        "required": true
                    },
                    {
                        "description": "Data source",
                        "name": "load",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/handler.LoadRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/pipeline.Snapshot"
                        }
                    },
                    "400": {
                        "description": "Invalid request",
                        "schema": {
                            "$ref": "#/definitions/handler.ErrorBody"
                        }
                    },
                    "404": {
                        "description": "Workflow not found",
                        "schema": {
                            "$ref": "#/definitions/handler.ErrorBody"
                        }
                    },
                    "409": {
                        "description": "Precondition failed or busy",
                        "schema": {
                            "$ref": "#/definitions/handler.ErrorBody"
                        }
                    },
                    "502": {
                        "description": "Backend failure",
                        "schema": {
                            "$ref": "#/definitions/handler.ErrorBody"
                        }
                    }
                }
            }
        },
        "/workflows/{id}/upload": {
            "post": {
                "tags": [
                    "stages"
                ],
                "summary": "Upload CSV",
                "description": "Load a CSV file sent as multipart form field file",
                "produces": [
                    "application/json"
                ],
                "consumes": [
                    "multipart/form-data"
                ],
                "parameters": [
                    {
                        "type": "string",
                        "description": "Workflow ID",
                        "name": "id",
                        "in": "path",
                        "required": true
                    },
                    {
                        "type": "file",
                        "description": "CSV file",
                        "name": "file",
                        "in": "formData",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/pipeline.Snapshot"
                        }
                    },
                    "400": {
                        "description": "Invalid request",
                        "schema": {
                            "$ref": "#/definitions/handler.ErrorBody"
                        }
                    },
                    "404": {
                        "description": "Workflow not found",
                        "schema": {
                            "$ref": "#/definitions/handler.ErrorBody"
                        }
                    },
                    "409": {
                        "description": "Precondition failed or busy",
                        "schema": {
                            "$ref": "#/definitions/handler.ErrorBody"
                        }
                    },
                    "502": {
                        "description": "Backend failure",
                        "schema": {
                            "$ref": "#/definitions/handler.ErrorBody"
                        }
                    }
                }
            }
        },
        "/workflows/{id}/mapping/suggest": {
            "post": {
                "tags": [
                    "mapping"
                ],
                "summary": "Suggest mapping",
                "description": "Match model variables to dataset fields by name",
                "produces": [
                    "application/json"
                ],
                "consumes": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "type": "string",
                        "description": "Workflow ID",
                        "name": "id",
                        "in": "path",
                        "required": true
                    },
                    {
                        "description": "Model variables",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/handler.SuggestRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/handler.SuggestResponse"
                        }
                    },
                    "400": {
                        "description": "Invalid request",
                        "schema": {
                            "$ref": "#/definitions/handler.ErrorBody"
                        }
                    },
                    "404": {
                        "description": "Workflow not found",
                        "schema": {
                            "$ref": "#/definitions/handler.ErrorBody"
                        }
                    },
                    "409": {
                        "description": "Precondition failed or busy",
                        "schema": {
                            "$ref": "#/definitions/handler.ErrorBody"
                        }
                    },
                    "502": {
                        "description": "Backend failure",
                        "schema": {
                            "$ref": "#/definitions/handler.ErrorBody"
                        }
                    }
                }
            }
        },
        "/workflows/{id}/mapping": {
            "put": {
                "tags": [
                    "mapping"
                ],
                "summary": "Apply mapping",
                "description": "Apply a mapping; filtered and cleaned data are discarded",
                "produces": [
                    "application/json"
                ],
                "consumes": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "type": "string",
                        "description": "Workflow ID",
                        "name": "id",
                        "in": "path",
                        "required": true
                    },
                    {
                        "description": "Variable to field mapping",
                        "name": "mapping",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/model.FieldMapping"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/pipeline.Snapshot"
                        }
                    },
                    "400": {
                        "description": "Invalid request",
                        "schema": {
                            "$ref": "#/definitions/handler.ErrorBody"
                        }
                    },
                    "404": {
                        "description": "Workflow not found",
                        "schema": {
                            "$ref": "#/definitions/handler.ErrorBody"
                        }
                    },
                    "409": {
                        "description": "Precondition failed or busy",
                        "schema": {
                            "$ref": "#/definitions/handler.ErrorBody"
                        }
                    },
                    "502": {
                        "description": "Backend failure",
                        "schema": {
                            "$ref": "#/definitions/handler.ErrorBody"
                        }
                    }
                }
            }
        },
        "/workflows/{id}/fields": {
            "get": {
                "tags": [
                    "mapping"
                ],
                "summary": "Table fields",
                "description": "Field choices of a backend table",
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "type": "string",
                        "description": "Workflow ID",
                        "name": "id",
                        "in": "path",
                        "required": true
                    },
                    {
                        "type": "string",
                        "description": "Table",
                        "name": "table",
                        "in": "query",
                        "required": true
                    },
                    {
                        "type": "string",
                        "description": "Stored dataset ID",
                        "name": "datasetId",
                        "in": "query",
                        "required": false
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/backend.Choices"
                        }
                    },
                    "400": {
                        "description": "Invalid request",
                        "schema": {
                            "$ref": "#/definitions/handler.ErrorBody"
                        }
                    },
                    "404": {
                        "description": "Workflow not found",
                        "schema": {
                            "$ref": "#/definitions/handler.ErrorBody"
                        }
                    },
                    "409": {
                        "description": "Precondition failed or busy",
                        "schema": {
                            "$ref": "#/definitions/handler.ErrorBody"
                        }
                    },
                    "502": {
                        "description": "Backend failure",
                        "schema": {
                            "$ref": "#/definitions/handler.ErrorBody"
                        }
                    }
                }
            }
        },
        "/workflows/{id}/filter": {
            "post": {
                "tags": [
                    "stages"
                ],
                "summary": "Filter",
                "description": "Select fields and an optional inclusive year range",
                "produces": [
                    "application/json"
                ],
                "consumes": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "type": "string",
                        "description": "Workflow ID",
                        "name": "id",
                        "in": "path",
                        "required": true
                    },
                    {
                        "description": "Fields and year range",
                        "name": "filter",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/model.FilterSpec"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/pipeline.Snapshot"
                        }
                    },
                    "400": {
                        "description": "Invalid request",
                        "schema": {
                            "$ref": "#/definitions/handler.ErrorBody"
                        }
                    },
                    "404": {
                        "description": "Workflow not found",
                        "schema": {
                            "$ref": "#/definitions/handler.ErrorBody"
                        }
                    },
                    "409": {
                        "description": "Precondition failed or busy",
                        "schema": {
                            "$ref": "#/definitions/handler.ErrorBody"
                        }
                    },
                    "502": {
                        "description": "Backend failure",
                        "schema": {
                            "$ref": "#/definitions/handler.ErrorBody"
                        }
                    }
                }
            }
        },
        "/workflows/{id}/clean": {
            "post": {
                "tags": [
                    "stages"
                ],
                "summary": "Clean",
                "description": "Clean the filtered dataset",
                "produces": [
                    "application/json"
                ],
                "consumes": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "type": "string",
                        "description": "Workflow ID",
                        "name": "id",
                        "in": "path",
                        "required": true
                    },
                    {
                        "description": "Cleaning options",
                        "name": "options",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/model.CleaningOptions"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/model.CleaningReport"
                        }
                    },
                    "400": {
                        "description": "Invalid request",
                        "schema": {
                            "$ref": "#/definitions/handler.ErrorBody"
                        }
                    },
                    "404": {
                        "description": "Workflow not found",
                        "schema": {
                            "$ref": "#/definitions/handler.ErrorBody"
                        }
                    },
                    "409": {
                        "description": "Precondition failed or busy",
                        "schema": {
                            "$ref": "#/definitions/handler.ErrorBody"
                        }
                    },
                    "502": {
                        "description": "Backend failure",
                        "schema": {
                            "$ref": "#/definitions/handler.ErrorBody"
                        }
                    }
                }
            }
        },
        "/workflows/{id}/report": {
            "get": {
                "tags": [
                    "stages"
                ],
                "summary": "Cleaning report",
                "description": "Report of the last cleaning run",
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "type": "string",
                        "description": "Workflow ID",
                        "name": "id",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/model.CleaningReport"
                        }
                    },
                    "400": {
                        "description": "Invalid request",
                        "schema": {
                            "$ref": "#/definitions/handler.ErrorBody"
                        }
                    },
                    "404": {
                        "description": "Workflow not found",
                        "schema": {
                            "$ref": "#/definitions/handler.ErrorBody"
                        }
                    },
                    "409": {
                        "description": "Precondition failed or busy",
                        "schema": {
                            "$ref": "#/definitions/handler.ErrorBody"
                        }
                    },
                    "502": {
                        "description": "Backend failure",
                        "schema": {
                            "$ref": "#/definitions/handler.ErrorBody"
                        }
                    }
                }
            }
        },
        "/workflows/{id}/page": {
            "get": {
                "tags": [
                    "preview"
                ],
                "summary": "Get page",
                "description": "Move the preview to page n",
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "type": "string",
                        "description": "Workflow ID",
                        "name": "id",
                        "in": "path",
                        "required": true
                    },
                    {
                        "type": "integer",
                        "description": "Page number",
                        "name": "n",
                        "in": "query",
                        "required": false
                    },
                    {
                        "type": "integer",
                        "description": "Page size",
                        "name": "size",
                        "in": "query",
                        "required": false
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/handler.PageResponse"
                        }
                    },
                    "400": {
                        "description": "Invalid request",
                        "schema": {
                            "$ref": "#/definitions/handler.ErrorBody"
                        }
                    },
                    "404": {
                        "description": "Workflow not found",
                        "schema": {
                            "$ref": "#/definitions/handler.ErrorBody"
                        }
                    },
                    "409": {
                        "description": "Precondition failed or busy",
                        "schema": {
                            "$ref": "#/definitions/handler.ErrorBody"
                        }
                    },
                    "502": {
                        "description": "Backend failure",
                        "schema": {
                            "$ref": "#/definitions/handler.ErrorBody"
                        }
                    }
                }
            }
        },
        "/workflows/{id}/page/next": {
            "post": {
                "tags": [
                    "preview"
                ],
                "summary": "Next page",
                "description": "Advance the preview by one page",
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "type": "string",
                        "description": "Workflow ID",
                        "name": "id",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/handler.PageResponse"
                        }
                    },
                    "400": {
                        "description": "Invalid request",
                        "schema": {
                            "$ref": "#/definitions/handler.ErrorBody"
                        }
                    },
                    "404": {
                        "description": "Workflow not found",
                        "schema": {
                            "$ref": "#/definitions/handler.ErrorBody"
                        }
                    },
                    "409": {
                        "description": "Precondition failed or busy",
                        "schema": {
                            "$ref": "#/definitions/handler.ErrorBody"
                        }
                    },
                    "502": {
                        "description": "Backend failure",
                        "schema": {
                            "$ref": "#/definitions/handler.ErrorBody"
                        }
                    }
                }
            }
        },
        "/workflows/{id}/page/prev": {
            "post": {
                "tags": [
                    "preview"
                ],
                "summary": "Previous page",
                "description": "Move the preview back one page",
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "type": "string",
                        "description": "Workflow ID",
                        "name": "id",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/handler.PageResponse"
                        }
                    },
                    "400": {
                        "description": "Invalid request",
                        "schema": {
                            "$ref": "#/definitions/handler.ErrorBody"
                        }
                    },
                    "404": {
                        "description": "Workflow not found",
                        "schema": {
                            "$ref": "#/definitions/handler.ErrorBody"
                        }
                    },
                    "409": {
                        "description": "Precondition failed or busy",
                        "schema": {
                            "$ref": "#/definitions/handler.ErrorBody"
                        }
                    },
                    "502": {
                        "description": "Backend failure",
                        "schema": {
                            "$ref": "#/definitions/handler.ErrorBody"
                        }
                    }
                }
            }
        },
        "/workflows/{id}/summary": {
            "get": {
                "tags": [
                    "preview"
                ],
                "summary": "Column summary",
                "description": "Per-column statistics, optionally grouped",
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "type": "string",
                        "description": "Workflow ID",
                        "name": "id",
                        "in": "path",
                        "required": true
                    },
                    {
                        "type": "string",
                        "description": "Group by field",
                        "name": "groupBy",
                        "in": "query",
                        "required": false
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/handler.SummaryResponse"
                        }
                    },
                    "400": {
                        "description": "Invalid request",
                        "schema": {
                            "$ref": "#/definitions/handler.ErrorBody"
                        }
                    },
                    "404": {
                        "description": "Workflow not found",
                        "schema": {
                            "$ref": "#/definitions/handler.ErrorBody"
                        }
                    },
                    "409": {
                        "description": "Precondition failed or busy",
                        "schema": {
                            "$ref": "#/definitions/handler.ErrorBody"
                        }
                    },
                    "502": {
                        "description": "Backend failure",
                        "schema": {
                            "$ref": "#/definitions/handler.ErrorBody"
                        }
                    }
                }
            }
        },
        "/workflows/{id}/history": {
            "get": {
                "tags": [
                    "workflows"
                ],
                "summary": "Workflow history",
                "description": "Recorded stage runs and errors",
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "type": "string",
                        "description": "Workflow ID",
                        "name": "id",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/handler.HistoryResponse"
                        }
                    },
                    "400": {
                        "description": "Invalid request",
                        "schema": {
                            "$ref": "#/definitions/handler.ErrorBody"
                        }
                    },
                    "404": {
                        "description": "Workflow not found",
                        "schema": {
                            "$ref": "#/definitions/handler.ErrorBody"
                        }
                    },
                    "409": {
                        "description": "Precondition failed or busy",
                        "schema": {
                            "$ref": "#/definitions/handler.ErrorBody"
                        }
                    },
                    "502": {
                        "description": "Backend failure",
                        "schema": {
                            "$ref": "#/definitions/handler.ErrorBody"
                        }
                    }
                }
            }
        },
        "/workflows/{id}/metrics": {
            "get": {
                "tags": [
                    "workflows"
                ],
                "summary": "Workflow metrics",
                "description": "Per-stage run counts and timings",
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "type": "string",
                        "description": "Workflow ID",
                        "name": "id",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/model.WorkflowMetrics"
                        }
                    },
                    "400": {
                        "description": "Invalid request",
                        "schema": {
                            "$ref": "#/definitions/handler.ErrorBody"
                        }
                    },
                    "404": {
                        "description": "Workflow not found",
                        "schema": {
                            "$ref": "#/definitions/handler.ErrorBody"
                        }
                    },
                    "409": {
                        "description": "Precondition failed or busy",
                        "schema": {
                            "$ref": "#/definitions/handler.ErrorBody"
                        }
                    },
                    "502": {
                        "description": "Backend failure",
                        "schema": {
                            "$ref": "#/definitions/handler.ErrorBody"
                        }
                    }
                }
            }
        },
        "/workflows/{id}/export": {
            "post": {
                "tags": [
                    "files"
                ],
                "summary": "Export dataset",
                "description": "Save the current dataset with its provenance",
                "produces": [
                    "application/json"
                ],
                "consumes": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "type": "string",
                        "description": "Workflow ID",
                        "name": "id",
                        "in": "path",
                        "required": true
                    },
                    {
                        "description": "Format, target and name",
                        "name": "export",
                        "in": "body",
                        "required": false,
                        "schema": {
                            "$ref": "#/definitions/pipeline.ExportRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/model.ExportResult"
                        }
                    },
                    "400": {
                        "description": "Invalid request",
                        "schema": {
                            "$ref": "#/definitions/handler.ErrorBody"
                        }
                    },
                    "404": {
                        "description": "Workflow not found",
                        "schema": {
                            "$ref": "#/definitions/handler.ErrorBody"
                        }
                    },
                    "409": {
                        "description": "Precondition failed or busy",
                        "schema": {
                            "$ref": "#/definitions/handler.ErrorBody"
                        }
                    },
                    "502": {
                        "description": "Backend failure",
                        "schema": {
                            "$ref": "#/definitions/handler.ErrorBody"
                        }
                    }
                }
            }
        },
        "/workflows/{id}/analysis": {
            "post": {
                "tags": [
                    "analysis"
                ],
                "summary": "Start analysis",
                "description": "Run a model against the current dataset on the backend",
                "produces": [
                    "application/json"
                ],
                "consumes": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "type": "string",
                        "description": "Workflow ID",
                        "name": "id",
                        "in": "path",
                        "required": true
                    },
                    {
                        "description": "Model and options",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/model.AnalysisRequest"
                        }
                    }
                ],
                "responses": {
                    "202": {
                        "description": "Accepted",
                        "schema": {
                            "$ref": "#/definitions/handler.AnalysisStatus"
                        }
                    },
                    "400": {
                        "description": "Invalid request",
                        "schema": {
                            "$ref": "#/definitions/handler.ErrorBody"
                        }
                    },
                    "404": {
                        "description": "Workflow not found",
                        "schema": {
                            "$ref": "#/definitions/handler.ErrorBody"
                        }
                    },
                    "409": {
                        "description": "Precondition failed or busy",
                        "schema": {
                            "$ref": "#/definitions/handler.ErrorBody"
                        }
                    },
                    "502": {
                        "description": "Backend failure",
                        "schema": {
                            "$ref": "#/definitions/handler.ErrorBody"
                        }
                    }
                }
            },
            "get": {
                "tags": [
                    "analysis"
                ],
                "summary": "Analysis status",
                "description": "Progress or result of the last analysis",
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "type": "string",
                        "description": "Workflow ID",
                        "name": "id",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/handler.AnalysisStatus"
                        }
                    },
                    "400": {
                        "description": "Invalid request",
                        "schema": {
                            "$ref": "#/definitions/handler.ErrorBody"
                        }
                    },
                    "404": {
                        "description": "Workflow not found",
                        "schema": {
                            "$ref": "#/definitions/handler.ErrorBody"
                        }
                    },
                    "409": {
                        "description": "Precondition failed or busy",
                        "schema": {
                            "$ref": "#/definitions/handler.ErrorBody"
                        }
                    },
                    "502": {
                        "description": "Backend failure",
                        "schema": {
                            "$ref": "#/definitions/handler.ErrorBody"
                        }
                    }
                }
            },
            "delete": {
                "tags": [
                    "analysis"
                ],
                "summary": "Cancel analysis",
                "description": "Abort the running analysis and its progress poll",
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "type": "string",
                        "description": "Workflow ID",
                        "name": "id",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/handler.AnalysisStatus"
                        }
                    },
                    "400": {
                        "description": "Invalid request",
                        "schema": {
                            "$ref": "#/definitions/handler.ErrorBody"
                        }
                    },
                    "404": {
                        "description": "Workflow not found",
                        "schema": {
                            "$ref": "#/definitions/handler.ErrorBody"
                        }
                    },
                    "409": {
                        "description": "Precondition failed or busy",
                        "schema": {
                            "$ref": "#/definitions/handler.ErrorBody"
                        }
                    },
                    "502": {
                        "description": "Backend failure",
                        "schema": {
                            "$ref": "#/definitions/handler.ErrorBody"
                        }
                    }
                }
            }
        },
        "/download/{id}/{filename}": {
            "get": {
                "tags": [
                    "files"
                ],
                "summary": "Download file",
                "description": "Download an exported dataset",
                "produces": [
                    "application/octet-stream"
                ],
                "parameters": [
                    {
                        "type": "string",
                        "description": "Workflow ID",
                        "name": "id",
                        "in": "path",
                        "required": true
                    },
                    {
                        "type": "string",
                        "description": "File name",
                        "name": "filename",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "type": "file"
                        }
                    },
                    "400": {
                        "description": "Invalid request",
                        "schema": {
                            "$ref": "#/definitions/handler.ErrorBody"
                        }
                    },
                    "404": {
                        "description": "Workflow not found",
                        "schema": {
                            "$ref": "#/definitions/handler.ErrorBody"
                        }
                    },
                    "409": {
                        "description": "Precondition failed or busy",
                        "schema": {
                            "$ref": "#/definitions/handler.ErrorBody"
                        }
                    },
                    "502": {
                        "description": "Backend failure",
                        "schema": {
                            "$ref": "#/definitions/handler.ErrorBody"
                        }
                    }
                }
            }
        }
    },
    "definitions": {
        "handler.ErrorBody": {
            "type": "object",
            "properties": {
                "error": {
                    "type": "object",
                    "properties": {
                        "kind": {
                            "type": "string"
                        },
                        "message": {
                            "type": "string"
                        }
                    }
                }
            }
        },
        "handler.CreateWorkflowRequest": {
            "type": "object",
            "properties": {
                "name": {
                    "type": "string"
                }
            }
        },
        "handler.WorkflowResponse": {
            "type": "object",
            "properties": {
                "workflow": {
                    "$ref": "#/definitions/model.WorkflowInfo"
                },
                "state": {
                    "$ref": "#/definitions/pipeline.Snapshot"
                }
            }
        },
        "handler.LoadRequest": {
            "type": "object",
            "properties": {
                "rows": {
                    "type": "array",
                    "items": {
                        "type": "object",
                        "additionalProperties": true
                    }
                },
                "dataset": {
                    "type": "object",
                    "additionalProperties": true
                },
                "source": {
                    "$ref": "#/definitions/model.FetchRequest"
                },
                "url": {
                    "type": "string"
                },
                "format": {
                    "type": "string"
                },
                "datasetId": {
                    "type": "string"
                },
                "mapping": {
                    "$ref": "#/definitions/model.FieldMapping"
                }
            }
        },
        "handler.SuggestRequest": {
            "type": "object",
            "properties": {
                "modelVariables": {
                    "type": "array",
                    "items": {
                        "type": "string"
                    }
                },
                "datasetId": {
                    "type": "string"
                }
            }
        },
        "handler.SuggestResponse": {
            "type": "object",
            "properties": {
                "modelVariables": {
                    "type": "array",
                    "items": {
                        "type": "string"
                    }
                },
                "mapping": {
                    "$ref": "#/definitions/model.FieldMapping"
                }
            }
        },
        "handler.PageResponse": {
            "type": "object",
            "properties": {
                "schema": {
                    "type": "array",
                    "items": {
                        "type": "string"
                    }
                },
                "records": {
                    "type": "array",
                    "items": {
                        "type": "object",
                        "additionalProperties": true
                    }
                },
                "page": {
                    "$ref": "#/definitions/model.PageState"
                }
            }
        },
        "handler.SummaryResponse": {
            "type": "object",
            "properties": {
                "stage": {
                    "type": "string"
                },
                "columns": {
                    "type": "array",
                    "items": {
                        "type": "object",
                        "additionalProperties": true
                    }
                },
                "groups": {
                    "type": "array",
                    "items": {
                        "type": "object",
                        "additionalProperties": true
                    }
                }
            }
        },
        "handler.HistoryResponse": {
            "type": "object",
            "properties": {
                "runs": {
                    "type": "array",
                    "items": {
                        "type": "object",
                        "additionalProperties": true
                    }
                },
                "errors": {
                    "type": "array",
                    "items": {
                        "type": "object",
                        "additionalProperties": true
                    }
                }
            }
        },
        "handler.AnalysisStatus": {
            "type": "object",
            "properties": {
                "status": {
                    "type": "string"
                },
                "progress": {
                    "type": "integer"
                },
                "results": {
                    "type": "object",
                    "additionalProperties": true
                },
                "error": {
                    "type": "string"
                }
            }
        },
        "backend.Choices": {
            "type": "object",
            "properties": {
                "fields": {
                    "type": "array",
                    "items": {
                        "type": "object",
                        "properties": {
                            "value": {
                                "type": "string"
                            },
                            "label": {
                                "type": "string"
                            }
                        }
                    }
                },
                "variables": {
                    "$ref": "#/definitions/model.DatasetVariables"
                }
            }
        },
        "model.DatasetVariables": {
            "type": "object",
            "properties": {
                "modelVariables": {
                    "type": "array",
                    "items": {
                        "type": "string"
                    }
                },
                "datasetFields": {
                    "type": "array",
                    "items": {
                        "type": "string"
                    }
                }
            }
        },
        "model.WorkflowInfo": {
            "type": "object",
            "properties": {
                "id": {
                    "type": "string"
                },
                "name": {
                    "type": "string"
                },
                "stage": {
                    "type": "string"
                },
                "rows": {
                    "type": "integer"
                },
                "createdAt": {
                    "type": "string"
                },
                "updatedAt": {
                    "type": "string"
                }
            }
        },
        "model.FetchRequest": {
            "type": "object",
            "properties": {
                "source": {
                    "type": "string"
                },
                "username": {
                    "type": "string"
                },
                "password": {
                    "type": "string"
                },
                "apiKey": {
                    "type": "string"
                },
                "endpoint": {
                    "type": "string"
                }
            }
        },
        "model.FieldMapping": {
            "type": "object",
            "additionalProperties": {
                "type": "string"
            }
        },
        "model.FilterSpec": {
            "type": "object",
            "properties": {
                "table": {
                    "type": "string"
                },
                "fields": {
                    "type": "array",
                    "items": {
                        "type": "string"
                    }
                },
                "startYear": {
                    "type": "integer"
                },
                "endYear": {
                    "type": "integer"
                }
            }
        },
        "model.CleaningOptions": {
            "type": "object",
            "properties": {
                "missingValueTreatment": {
                    "type": "string",
                    "enum": [
                        "drop",
                        "mean",
                        "median",
                        "zero",
                        "none"
                    ]
                },
                "outlierTreatment": {
                    "type": "string",
                    "enum": [
                        "clip",
                        "remove",
                        "none"
                    ]
                },
                "normalizationMethod": {
                    "type": "string",
                    "enum": [
                        "zscore",
                        "minmax",
                        "none"
                    ]
                },
                "removeDuplicates": {
                    "type": "boolean"
                },
                "convertDataTypes": {
                    "type": "boolean"
                }
            }
        },
        "model.CleaningReport": {
            "type": "object",
            "properties": {
                "options": {
                    "$ref": "#/definitions/model.CleaningOptions"
                },
                "rowsBefore": {
                    "type": "integer"
                },
                "rowsAfter": {
                    "type": "integer"
                },
                "duplicatesRemoved": {
                    "type": "integer"
                },
                "rowsDroppedMissing": {
                    "type": "integer"
                },
                "rowsDroppedOutliers": {
                    "type": "integer"
                },
                "valuesImputed": {
                    "type": "integer"
                },
                "valuesClipped": {
                    "type": "integer"
                }
            }
        },
        "model.PageState": {
            "type": "object",
            "properties": {
                "currentPage": {
                    "type": "integer"
                },
                "pageSize": {
                    "type": "integer"
                },
                "totalPages": {
                    "type": "integer"
                },
                "totalRows": {
                    "type": "integer"
                }
            }
        },
        "model.WorkflowMetrics": {
            "type": "object",
            "properties": {
                "workflow_id": {
                    "type": "string"
                },
                "start_time": {
                    "type": "string"
                },
                "stages": {
                    "type": "object",
                    "additionalProperties": true
                },
                "error_count": {
                    "type": "integer"
                }
            }
        },
        "model.ExportResult": {
            "type": "object",
            "properties": {
                "type": {
                    "type": "string"
                },
                "format": {
                    "type": "string"
                },
                "path": {
                    "type": "string"
                },
                "url": {
                    "type": "string"
                },
                "record_count": {
                    "type": "integer"
                },
                "success": {
                    "type": "boolean"
                },
                "error": {
                    "type": "string"
                },
                "timestamp": {
                    "type": "string"
                }
            }
        },
        "model.AnalysisRequest": {
            "type": "object",
            "properties": {
                "model": {
                    "type": "string"
                },
                "dataset": {
                    "type": "string"
                },
                "mapping": {
                    "$ref": "#/definitions/model.FieldMapping"
                },
                "options": {
                    "type": "object",
                    "additionalProperties": true
                }
            }
        },
        "pipeline.ExportRequest": {
            "type": "object",
            "properties": {
                "format": {
                    "type": "string"
                },
                "target": {
                    "type": "string",
                    "enum": [
                        "file",
                        "bucket",
                        "backend"
                    ]
                },
                "name": {
                    "type": "string"
                }
            }
        },
        "pipeline.Snapshot": {
            "type": "object",
            "properties": {
                "id": {
                    "type": "string"
                },
                "stage": {
                    "type": "string"
                },
                "schema": {
                    "type": "array",
                    "items": {
                        "type": "string"
                    }
                },
                "rows": {
                    "type": "integer"
                },
                "tables": {
                    "type": "array",
                    "items": {
                        "type": "object",
                        "properties": {
                            "value": {
                                "type": "string"
                            },
                            "label": {
                                "type": "string"
                            }
                        }
                    }
                },
                "modelVariables": {
                    "type": "array",
                    "items": {
                        "type": "string"
                    }
                },
                "mapping": {
                    "$ref": "#/definitions/model.FieldMapping"
                },
                "filterSpec": {
                    "$ref": "#/definitions/model.FilterSpec"
                },
                "cleaningOptions": {
                    "$ref": "#/definitions/model.CleaningOptions"
                },
                "page": {
                    "$ref": "#/definitions/model.PageState"
                }
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Dataset Workflow API",
	Description:      "Load, map, filter, clean, preview and export datasets, and run model analyses on the backend.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
