package env

import (
	"github.com/vst-systems/gm-controller/internal/config"
)

var Cfg *config.Config
