package model

import "time"

// Cafe はユーザーが訪問したカフェを表す。
// 所有者はuser_id（IdPのsubクレーム）で、他ユーザーからは参照できない。
type Cafe struct {
	ID             int64
	UserID         string
	Name           string
	Address        *string
	City           *string
	PlaceID        *string
	PhotoReference *string
	Lat            *float64
	Lng            *float64
	CreatedAt      time.Time
}

// CafeWithVisits はカフェに訪問集計（ドリンク数、最終訪問日時）を付与したもの。
type CafeWithVisits struct {
	Cafe
	DrinkCount int
	LastVisit  *time.Time
}

// CafeName はファジーマッチ用のカフェIDと名前の組。
type CafeName struct {
	ID   int64
	Name string
}

// PlaceFields は地図APIから得られる場所情報。カフェとウィッシュリストで共有する。
type PlaceFields struct {
	Name           string
	Address        *string
	City           *string
	PlaceID        *string
	PhotoReference *string
	Lat            *float64
	Lng            *float64
}
