package app

import (
	"github.com/vk/buildgridgo/internal/registry"
	"github.com/vk/buildgridgo/modules/env_vars"
	"github.com/vk/buildgridgo/modules/exec"
	"github.com/vk/buildgridgo/modules/fetch_version"
	"github.com/vk/buildgridgo/modules/http_request"
	"github.com/vk/buildgridgo/modules/json_file"
	"github.com/vk/buildgridgo/modules/print"
	"github.com/vk/buildgridgo/modules/s3"
	"github.com/vk/buildgridgo/modules/set_properties"
	"github.com/vk/buildgridgo/modules/socketio"
	"github.com/vk/buildgridgo/modules/zip"
)

// coreModules is the definitive list of all modules that are compiled into
// the buildgridgo binary.
func coreModules() []registry.Module {
	return []registry.Module{
		&env_vars.Module{},
		&exec.Module{},
		&fetch_version.Module{},
		&http_request.Module{},
		&json_file.Module{},
		&print.Module{},
		&s3.Module{},
		&set_properties.Module{},
		&socketio.Module{},
		&zip.Module{},
	}
}
