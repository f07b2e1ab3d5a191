// Package apidocs holds the Swagger document served at /swagger/doc.json when
// the binary is built with -tags=swagger. Regenerate with `make swagger-gen`.
package apidocs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {
            "name": "mlserve maintainers"
        },
        "license": {
            "name": "MIT",
            "url": "https://opensource.org/licenses/MIT"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/predict": {
            "post": {
                "description": "Routes the prompt to the named model and returns the first generated output.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["inference"],
                "summary": "Generate text with a loaded model",
                "parameters": [
                    {
                        "description": "Model and prompt",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/types.PredictRequest"}
                    }
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.PredictResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/types.ModelNotFoundResponse"}},
                    "415": {"description": "Unsupported Media Type", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        },
        "/models": {
            "get": {
                "produces": ["application/json"],
                "tags": ["models"],
                "summary": "List loaded models",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.ModelsResponse"}}
                }
            }
        },
        "/status": {
            "get": {
                "produces": ["application/json"],
                "tags": ["models"],
                "summary": "Load phase and per-model outcomes",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.StatusResponse"}}
                }
            }
        },
        "/loads": {
            "get": {
                "produces": ["application/json"],
                "tags": ["models"],
                "summary": "Recent load history",
                "parameters": [
                    {"type": "integer", "description": "Maximum records", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.LoadsResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "types.PredictRequest": {
            "type": "object",
            "properties": {
                "model": {"type": "string", "example": "invoice-model"},
                "prompt": {"type": "string", "example": "Extract the total from this invoice:"}
            }
        },
        "types.PredictResponse": {
            "type": "object",
            "properties": {
                "model": {"type": "string", "example": "invoice-model"},
                "response": {"type": "string", "example": "Total: 1,240.00 EUR"}
            }
        },
        "types.ModelNotFoundResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string", "example": "Model 'missing-model' not found"},
                "available": {"type": "array", "items": {"type": "string"}, "example": ["invoice-model", "po-model"]}
            }
        },
        "types.ModelsResponse": {
            "type": "object",
            "properties": {
                "available_models": {"type": "array", "items": {"type": "string"}, "example": ["invoice-model", "po-model"]}
            }
        },
        "types.ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string", "example": "invalid JSON body"},
                "code": {"type": "integer", "example": 400}
            }
        },
        "types.ModelStatus": {
            "type": "object",
            "properties": {
                "model": {"type": "string", "example": "invoice-model"},
                "version": {"type": "string", "example": "10"},
                "run_id": {"type": "string", "example": "3f2a9c0d1e"},
                "path": {"type": "string", "example": "/models/invoice-model"},
                "stage": {"type": "string", "example": "ready"},
                "loaded": {"type": "boolean", "example": true},
                "error": {"type": "string"},
                "duration_ms": {"type": "integer", "example": 5400}
            }
        },
        "types.StatusResponse": {
            "type": "object",
            "properties": {
                "phase": {"type": "string", "example": "serving"},
                "load_run_id": {"type": "string"},
                "models": {"type": "array", "items": {"$ref": "#/definitions/types.ModelStatus"}},
                "loaded_count": {"type": "integer", "example": 2},
                "failed_count": {"type": "integer", "example": 0},
                "uptime_seconds": {"type": "integer", "example": 3600},
                "server_time_unix": {"type": "integer", "example": 1700000000}
            }
        },
        "types.LoadRecord": {
            "type": "object",
            "properties": {
                "load_run_id": {"type": "string"},
                "model": {"type": "string"},
                "version": {"type": "string"},
                "run_id": {"type": "string"},
                "stage": {"type": "string"},
                "loaded": {"type": "boolean"},
                "error": {"type": "string"},
                "duration_ms": {"type": "integer"},
                "finished_unix": {"type": "integer"}
            }
        },
        "types.LoadsResponse": {
            "type": "object",
            "properties": {
                "loads": {"type": "array", "items": {"$ref": "#/definitions/types.LoadRecord"}}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{"http"},
	Title:            "mlserve API",
	Description:      "Serves text generation from models resolved out of an MLflow registry.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
