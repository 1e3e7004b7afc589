// Package config handles configuration loading for the sleeplocker server.
//
// Configuration is loaded from a YAML file with ${VAR_NAME} environment
// variable expansion and validated before use:
//
//	server:
//	  http_addr: "0.0.0.0:8080"
//	database:
//	  path: "/var/lib/sleeplocker/raids.db"
//	loot:
//	  classes_path: "config/classes.yaml"
//	  loot_path: "config/loot.yaml"
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
package config
