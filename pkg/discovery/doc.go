// Package discovery announces the controller on the local network with
// mDNS/DNS-SD.
//
// The controller registers one instance of the plain HTTP service type
// (_http._tcp) so browsers and service browsers on the same link can find
// its web front end without knowing its address.
//
// # TXT Records
//
//   - path: URL path of the front end ("/")
//   - ver: controller version
//   - ch: number of relay channels
//   - mode: channel profile ("heating" or "cooling"), when set
//
// Records are encoded in key order so repeated registrations carry
// identical TXT data.
package discovery
