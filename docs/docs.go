// Package docs registers the OpenAPI document served at /swagger/.
// Regenerate with: swag init -g cmd/storefront/main.go
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/carts": {
            "get": {"security": [{"BearerAuth": []}], "produces": ["application/json"], "tags": ["Carts"], "summary": "Get the buyer's cart", "responses": {"200": {"description": "OK"}, "401": {"description": "Authentication required"}}}
        },
        "/carts/items": {
            "post": {"security": [{"BearerAuth": []}], "consumes": ["application/json"], "produces": ["application/json"], "tags": ["Carts"], "summary": "Add a line to the cart", "responses": {"200": {"description": "OK"}, "400": {"description": "Validation error"}}},
            "put": {"security": [{"BearerAuth": []}], "consumes": ["application/json"], "produces": ["application/json"], "tags": ["Carts"], "summary": "Set a line's quantity", "responses": {"200": {"description": "OK"}, "404": {"description": "Item not in cart"}}}
        },
        "/carts/items/{productId}": {
            "delete": {"security": [{"BearerAuth": []}], "produces": ["application/json"], "tags": ["Carts"], "summary": "Remove a line from the cart", "parameters": [{"type": "string", "format": "uuid", "name": "productId", "in": "path", "required": true}, {"type": "string", "name": "variantId", "in": "query"}], "responses": {"200": {"description": "OK"}, "404": {"description": "Item not in cart"}}}
        },
        "/coupons": {
            "get": {"security": [{"BearerAuth": []}], "produces": ["application/json"], "tags": ["Coupons"], "summary": "List coupons", "responses": {"200": {"description": "OK"}}},
            "post": {"security": [{"BearerAuth": []}], "consumes": ["application/json"], "produces": ["application/json"], "tags": ["Coupons"], "summary": "Create a coupon", "responses": {"201": {"description": "Created"}, "400": {"description": "Validation error"}, "403": {"description": "Admin role required"}, "409": {"description": "Code already exists"}}}
        },
        "/coupons/validate": {
            "post": {"security": [{"BearerAuth": []}], "consumes": ["application/json"], "produces": ["application/json"], "tags": ["Coupons"], "summary": "Validate a coupon", "responses": {"200": {"description": "OK"}, "404": {"description": "Coupon not found"}, "422": {"description": "Coupon rejected"}, "429": {"description": "Too many attempts"}}}
        },
        "/coupons/{code}": {
            "get": {"security": [{"BearerAuth": []}], "produces": ["application/json"], "tags": ["Coupons"], "summary": "Get a coupon", "parameters": [{"type": "string", "name": "code", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "404": {"description": "Coupon not found"}}},
            "put": {"security": [{"BearerAuth": []}], "consumes": ["application/json"], "produces": ["application/json"], "tags": ["Coupons"], "summary": "Update a coupon", "parameters": [{"type": "string", "name": "code", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "404": {"description": "Coupon not found"}}},
            "delete": {"security": [{"BearerAuth": []}], "tags": ["Coupons"], "summary": "Delete a coupon", "parameters": [{"type": "string", "name": "code", "in": "path", "required": true}], "responses": {"204": {"description": "No Content"}, "404": {"description": "Coupon not found"}}}
        },
        "/coupons/{code}/apply": {
            "post": {"security": [{"BearerAuth": []}], "produces": ["application/json"], "tags": ["Coupons"], "summary": "Redeem a coupon use", "parameters": [{"type": "string", "name": "code", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "422": {"description": "Coupon not redeemable"}}}
        },
        "/orders": {
            "get": {"security": [{"BearerAuth": []}], "produces": ["application/json"], "tags": ["Orders"], "summary": "List the buyer's orders", "parameters": [{"type": "integer", "name": "page", "in": "query"}, {"type": "integer", "name": "pageSize", "in": "query"}], "responses": {"200": {"description": "OK"}}},
            "post": {"security": [{"BearerAuth": []}], "consumes": ["application/json"], "produces": ["application/json"], "tags": ["Orders"], "summary": "Check out the cart", "responses": {"201": {"description": "Created"}, "400": {"description": "Validation error or empty cart"}, "404": {"description": "Coupon not found"}, "422": {"description": "Coupon rejected"}}}
        },
        "/orders/quote": {
            "post": {"security": [{"BearerAuth": []}], "consumes": ["application/json"], "produces": ["application/json"], "tags": ["Orders"], "summary": "Price the current cart", "responses": {"200": {"description": "OK"}, "400": {"description": "Empty cart"}}}
        },
        "/orders/{id}": {
            "get": {"security": [{"BearerAuth": []}], "produces": ["application/json"], "tags": ["Orders"], "summary": "Get an order by ID", "parameters": [{"type": "string", "format": "uuid", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "400": {"description": "Invalid order ID format"}, "404": {"description": "Order not found"}}}
        },
        "/orders/{id}/status": {
            "patch": {"security": [{"BearerAuth": []}], "consumes": ["application/json"], "produces": ["application/json"], "tags": ["Orders"], "summary": "Update order status", "parameters": [{"type": "string", "format": "uuid", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "403": {"description": "Admin role required"}, "404": {"description": "Order not found"}}}
        },
        "/orders/{id}/refund": {
            "post": {"security": [{"BearerAuth": []}], "produces": ["application/json"], "tags": ["Payments"], "summary": "Refund a paid order", "parameters": [{"type": "string", "format": "uuid", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "400": {"description": "Order not paid"}, "404": {"description": "Order not found"}}}
        },
        "/payments": {
            "post": {"security": [{"BearerAuth": []}], "consumes": ["application/json"], "produces": ["application/json"], "tags": ["Payments"], "summary": "Start paying for an order", "responses": {"201": {"description": "Created"}, "400": {"description": "Order not payable"}, "404": {"description": "Order not found"}}}
        },
        "/payments/webhook": {
            "post": {"consumes": ["application/json"], "produces": ["application/json"], "tags": ["Payments"], "summary": "Stripe webhook", "parameters": [{"type": "string", "name": "Stripe-Signature", "in": "header", "required": true}], "responses": {"200": {"description": "OK"}, "400": {"description": "Bad signature"}}}
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Storefront Checkout API",
	Description:      "Carts, coupons, order pricing and payments for the storefront. Amounts are whole VND.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
