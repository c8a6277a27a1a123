// Copyright (c) 2025, WSO2 LLC. (https://www.wso2.com).
//
// WSO2 LLC. licenses this file to you under the Apache License,
// Version 2.0 (the "License"); you may not use this file except
// in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied. See the License for the
// specific language governing permissions and limitations
// under the License.

package camilladsp

// LibraryVersion is the version of this client library.
const LibraryVersion = "3.0.0"

// Versions reports the CamillaDSP and library versions.
type Versions struct {
	commandGroup
}

// CamillaDSP returns the version read on the last successful Connect. ok is
// false if the client has never connected.
func (v *Versions) CamillaDSP() (Version, bool) {
	return v.client.cachedVersion()
}

// Library returns the version of this library.
func (v *Versions) Library() Version {
	return ParseVersion(LibraryVersion)
}
