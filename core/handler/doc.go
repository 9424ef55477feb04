// Package handler holds the handler chain installed on the listener.
//
// The chain has exactly two members, in this order:
//
//  1. Dispatcher: routes requests to deployed contexts by longest context
//     path prefix. It doubles as the package registry the deployment
//     manager registers contexts with.
//  2. Fallback: answers everything no context claimed with a 404 page
//     listing the deployed contexts.
//
// The fallback must stay last so it never shadows a registered context.
package handler
