package cmd

import (
	"os"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/haierkeys/lww-note-sync/pkg/fileurl"
)

// configCandidates 未指定 -c 时依次查找的配置文件
var configCandidates = []string{
	"config/config-dev.yaml",
	"config.yaml",
	"config/config.yaml",
}

// resolveConfigFile 返回要使用的配置文件，找不到时写出内置默认配置
func resolveConfigFile(path string) (string, error) {
	if path != "" {
		return path, nil
	}

	for _, candidate := range configCandidates {
		if fileurl.IsExist(candidate) {
			return candidate, nil
		}
	}

	path = "config/config.yaml"
	bootstrapLogger.Warn("config file not found, creating default config", zap.String("path", path))

	if err := fileurl.CreatePath(path, os.ModePerm); err != nil {
		return "", errors.Wrap(err, "config file auto create error")
	}
	if err := fileurl.WriteFileAtomic(path, []byte(configDefault), 0o644); err != nil {
		return "", errors.Wrap(err, "config file auto create writing error")
	}

	bootstrapLogger.Info("config file auto create successfully", zap.String("path", path))
	return path, nil
}
