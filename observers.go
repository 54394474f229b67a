// Copyright (c) 2025 Niema Moshiri and The Zaparoo Project.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of go-pakfs.
//
// go-pakfs is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// go-pakfs is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with go-pakfs.  If not, see <https://www.gnu.org/licenses/>.

package pakfs

import (
	"reflect"
	"slices"
)

// Observer is told when the search roots become queryable and when they
// are about to be torn down.
//
// Observers are matched by identity, so implement them on pointer
// receivers. A value whose type is not comparable, such as a struct
// holding a func, is attached on every Attach and never matched by Detach.
type Observer interface {
	Realise()
	Unrealise()
}

// ObserverFuncs adapts a pair of functions to Observer. Nil fields are
// skipped.
type ObserverFuncs struct {
	OnRealise   func()
	OnUnrealise func()
}

// Realise calls OnRealise.
func (o *ObserverFuncs) Realise() {
	if o.OnRealise != nil {
		o.OnRealise()
	}
}

// Unrealise calls OnUnrealise.
func (o *ObserverFuncs) Unrealise() {
	if o.OnUnrealise != nil {
		o.OnUnrealise()
	}
}

type observers struct {
	list []Observer
}

func (o *observers) attach(observer Observer) {
	if observer == nil {
		return
	}
	if !slices.ContainsFunc(o.list, matches(observer)) {
		o.list = append(o.list, observer)
	}
}

func (o *observers) detach(observer Observer) {
	if i := slices.IndexFunc(o.list, matches(observer)); i >= 0 {
		o.list = slices.Delete(o.list, i, i+1)
	}
}

// matches compares observers with == only when their dynamic type allows
// it; == on two non-comparable values of the same type panics.
func matches(observer Observer) func(Observer) bool {
	typ := reflect.TypeOf(observer)
	return func(other Observer) bool {
		if typ == nil || typ != reflect.TypeOf(other) || !typ.Comparable() {
			return false
		}
		return observer == other
	}
}

func (o *observers) realise() {
	for _, observer := range slices.Clone(o.list) {
		observer.Realise()
	}
}

func (o *observers) unrealise() {
	for _, observer := range slices.Clone(o.list) {
		observer.Unrealise()
	}
}
