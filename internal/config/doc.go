// Package config provides configuration management for specctl.
//
// This package implements a layered configuration system. Configuration is
// loaded from several YAML files and merged in order, with later sources
// overriding earlier ones.
//
// # Configuration Layers
//
//  1. Default Configuration (struct tag defaults)
//  2. User Configuration (~/.config/specctl/config.yaml)
//  3. Project Configuration (./.specctl/config.yaml)
//  4. Explicit file passed with --config
//
// Command line flags override the merged result.
//
// # Configuration Structure
//
//	logLevel: info
//
//	environment:
//	  source: configmap   # os, static, file or configmap
//	  prefix: SPECCTL_    # used by the os source
//	  profile:
//	    test.groups: integration
//	  file: ./env.yaml    # used by the file source
//	  configMap:
//	    namespace: ci
//	    name: specctl-environment
//	    context: kind-ci
//
//	run:
//	  parallel: 4
//	  failFast: true
//	  output: console     # console, quiet or json
//	  reportPath: ./reports
//	  classFilter: "^Greeting"
//
//	metrics:
//	  textfile: ./specctl.prom
//
// Profile values are consulted before the selected source, so a project can
// pin a value that the process environment or cluster would otherwise
// answer.
package config
