package usersync

// DiffRosters computes which uni ids have to be added to and removed from a
// team so that the remote roster matches the directory group. Pure set
// difference: presence on exactly one side decides, nothing else. An id
// missing from the directory for any reason (removal, typo, incomplete
// search result) looks identical to an intentional removal.
func DiffRosters(directoryIDs, remoteIDs Set[string]) (toAdd, toRemove Set[string]) {
	toAdd = NewSet[string]()
	toRemove = NewSet[string]()
	for id := range directoryIDs {
		if !remoteIDs.Has(id) {
			toAdd.Add(id)
		}
	}
	for id := range remoteIDs {
		if !directoryIDs.Has(id) {
			toRemove.Add(id)
		}
	}
	return
}
