/*
Package strix is a turn-based support call engine: it answers a phone call,
walks the caller through a fixed conversation flow, and drives a ticketing
backend from commands the language model embeds in its own replies.

The engine is transport-agnostic. The telephony layer delivers three kinds of
events, HandleStart, HandleSpeech, and HandleSilence, and gets back a Reply
describing what to say and whether to keep listening, bridge to a live agent,
or hang up. HandleStatus tears the session down when the transport reports
the call over.

A call moves through stages: has the caller called about this before, should
an existing ticket be picked up, describe the new issue, did the suggested
steps work, anything else. Free-form answers are classified by keyword intent;
everything else goes to the composer, which searches the knowledge base and
asks the model for a spoken answer.

Backend side effects ride inside the model's replies as bracketed tags, such
as [ACTION: CREATE_TICKET] or [ACTION: TRANSFER]. The directive package
strips them from the spoken text and the executor applies them: ticket calls
run in the background so the caller never waits on the CRM, and call teardown
is deferred long enough for the farewell audio to finish playing.

Concrete collaborators live in their own packages: crm/freshdesk for the
ticketing backend, provider/groq for generation, and telco/twilio for the
webhook transport. cmd/strix is the server; cmd/strix-sim drives the engine
from a terminal.
*/
package strix
