// Package config provides configuration parsing for filebridge.
//
// The configuration is stored in filebridge.json next to where the server
// runs. This package handles loading, saving, and validating configuration.
//
// # Configuration File Structure
//
//	{
//	  "server": {
//	    "host": "0.0.0.0",
//	    "port": 8080,
//	    "route": "/graphql",
//	    "payloadKey": "data",
//	    "maxFieldBytes": 1048576
//	  },
//	  "spool": {
//	    "backend": "s3",
//	    "bucket": "uploads",
//	    "prefix": "spool/",
//	    "cleanupInterval": "5m",
//	    "maxAge": "1h"
//	  },
//	  "observability": {
//	    "logLevel": "info",
//	    "metricsPath": "/metrics"
//	  },
//	  "client": {
//	    "endpoint": "http://localhost:8080/graphql"
//	  }
//	}
//
// # Usage
//
//	cfg, err := config.Load(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Println("Listening on", cfg.Address())
package config
