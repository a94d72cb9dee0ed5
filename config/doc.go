// Package config loads go-restauth settings from a YAML file, .env files and the
// process environment.
//
// Example YAML:
//
//	client-id: my-client
//	redirect-uri: http://127.0.0.1:8080/callback
//	flow: pkce
//	scopes: [user-library-read, user-read-email]
//	http:
//	  timeout: 15s
//	logging:
//	  level: debug
//	  file: logs/restauth.log
package config
