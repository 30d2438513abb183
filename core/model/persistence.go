package model

import (
	"encoding/gob"
	"io"
	"os"

	"github.com/YuminosukeSato/weldsim/pkg/errors"
)

// 学習済みの状態は公開フィールドに置くこと。gob は非公開フィールドを無視する。
// インターフェース型のフィールドを持つ値は、具象型を gob.Register しておく。

// SaveModel は v を gob 形式で filename に書き出し、fsync まで行う
func SaveModel(v interface{}, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return errors.Wrapf(err, "failed to create %s", filename)
	}
	defer file.Close()

	if err := SaveModelToWriter(v, file); err != nil {
		return err
	}
	return errors.Wrapf(file.Sync(), "failed to sync %s", filename)
}

// LoadModel は SaveModel で書いたファイルを v に読み込む
func LoadModel(v interface{}, filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return errors.Wrapf(err, "failed to open %s", filename)
	}
	defer file.Close()

	return errors.Wrapf(LoadModelFromReader(v, file), "failed to load %s", filename)
}

// SaveModelToWriter は v を gob で w にエンコードする
func SaveModelToWriter(v interface{}, w io.Writer) error {
	return errors.Wrap(gob.NewEncoder(w).Encode(v), "failed to encode model")
}

// LoadModelFromReader は r から gob で v にデコードする
func LoadModelFromReader(v interface{}, r io.Reader) error {
	return errors.Wrap(gob.NewDecoder(r).Decode(v), "failed to decode model")
}
