// Package config loads and validates forge-gateway configuration.
//
// Configuration is YAML with ${VAR} environment variable expansion and
// Go duration strings for all timing fields:
//
//	server:
//	  http_addr: "localhost:8081"
//	database:
//	  path: "forge.db"
//	cache:
//	  ttl: "5m"
//	  max_entries: 10000
//	extractor:
//	  api_key: "${GEMINI_API_KEY}"
//	  model: "gemini-2.5-flash"
//	  timeout: "30s"
//	workflow:
//	  work_dir: "work_dir"
//	  max_turns: 10
//	logging:
//	  level: "info"
//	  format: "text"
package config
