/*
 * MIT License
 *
 * Copyright (c) 2024 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

package logger

import (
	"github.com/sirupsen/logrus"
)

type logHandle struct {
	l *logrus.Logger
}

func (h *logHandle) SetLevel(lvl Level) {
	h.l.SetLevel(lvl.logrus())
}

func (h *logHandle) GetLevel() Level {
	switch h.l.GetLevel() {
	case logrus.DebugLevel:
		return DebugLevel
	case logrus.WarnLevel:
		return WarnLevel
	case logrus.ErrorLevel:
		return ErrorLevel
	case logrus.FatalLevel:
		return FatalLevel
	default:
		return InfoLevel
	}
}

func (h *logHandle) Entry(lvl Level, msg string) Entry {
	return &entry{
		e:   logrus.NewEntry(h.l),
		lvl: lvl,
		msg: msg,
	}
}

type entry struct {
	e   *logrus.Entry
	lvl Level
	msg string
}

func (n *entry) FieldAdd(key string, val interface{}) Entry {
	n.e = n.e.WithField(key, val)
	return n
}

func (n *entry) ErrorAdd(adderror bool, err error) Entry {
	if !adderror || err == nil {
		return n
	}

	n.e = n.e.WithError(err)
	return n
}

func (n *entry) Log() {
	n.e.Log(n.lvl.logrus(), n.msg)
}
