// Package hcl provides the concrete HCL implementation for the script
// loading and data conversion interfaces defined in the `config` package.
// It is responsible for all file parsing, HCL-to-model translation, and
// CTY-to-Go data binding.
//
// A build script consists of `properties` blocks and `target` blocks:
//
//	properties {
//	  Configuration = lookup(arg, "config", "Release")
//	}
//
//	target "compile" {
//	  description = "Compiles the solution."
//	  default     = true
//	  depends_on  = ["restore"]
//
//	  action "exec" {
//	    arguments {
//	      command = ["dotnet", "build", "-c", prop.Configuration]
//	    }
//	  }
//	}
//
// Expressions inside `arguments` are evaluated when the action runs and can
// reference `prop`, `arg`, `env` and `target`. The loader rejects any other
// variable, and any function missing from the function table, before a build
// starts.
package hcl
