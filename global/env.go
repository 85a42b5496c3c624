package global

import (
	"github.com/anchored-notes/anchored-sync-service/pkg/fileurl"
)

var (
	// 程序执行目录
	ROOT string
	Name string = "Anchored Sync Service"
)

func init() {

	filename := fileurl.GetExePath()
	ROOT = filename + "/"

}
