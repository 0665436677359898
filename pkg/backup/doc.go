// Package backup ties login, report paging and downloads into one run.
//
// A run authenticates (refresh token first, then password), saves the
// profile, takes an exclusive lock on the output directory and then walks
// each child's report feed, archiving every report as it arrives. A child
// whose feed fails is recorded in the Summary and the run moves on to the
// next child.
package backup
