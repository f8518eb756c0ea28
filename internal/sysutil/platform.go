package sysutil

import (
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/Hara602/avSentry/internal/model"
)

// uname 可替换，便于测试
var uname = unix.Uname

// Architecture 读取 machine 字段 (等价于 uname -m)
// 失败时由调用方决定是否退出
func Architecture() (model.Architecture, error) {
	var u unix.Utsname
	if err := uname(&u); err != nil {
		return "", errors.Wrap(err, "uname failed")
	}
	return model.ParseArchitecture(unix.ByteSliceToString(u.Machine[:])), nil
}

// IsDarwin 等价于 uname -s == Darwin
func IsDarwin() bool {
	var u unix.Utsname
	if err := uname(&u); err != nil {
		return false
	}
	return unix.ByteSliceToString(u.Sysname[:]) == "Darwin"
}
