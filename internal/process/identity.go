/*
 * Licensed to the Apache Software Foundation (ASF) under one or more
 * contributor license agreements.  See the NOTICE file distributed with
 * this work for additional information regarding copyright ownership.
 * The ASF licenses this file to You under the Apache License, Version 2.0
 * (the "License"); you may not use this file except in compliance with
 * the License.  You may obtain a copy of the License at
 *
 *    http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package process

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// procRoot is where procfs is mounted.
var procRoot = "/proc"

// runsExecutable reports whether pid was started from bin, judged by the first
// argument in <procRoot>/<pid>/cmdline. Only base names are compared, so
// "java" matches "/usr/lib/jvm/bin/java". Without procfs there is nothing to
// compare and the pid is accepted.
// runsExecutable 通过 /proc/<pid>/cmdline 判断进程是否由 bin 启动；没有 procfs 时直接接受。
func runsExecutable(pid int, bin string) bool {
	raw, err := os.ReadFile(filepath.Join(procRoot, strconv.Itoa(pid), "cmdline"))
	if err != nil {
		if _, statErr := os.Stat(procRoot); statErr != nil {
			return true
		}
		return false
	}
	argv0, _, _ := strings.Cut(string(raw), "\x00")
	if argv0 == "" {
		// zombie or kernel thread
		return false
	}
	return filepath.Base(argv0) == filepath.Base(bin)
}
